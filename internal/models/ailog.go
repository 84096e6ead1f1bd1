package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AILog is a write-only record of an AI interaction. Failures writing it are
// never allowed to fail the user-facing request.
type AILog struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Type          string             `json:"type" bson:"type"` // chat, image, symptom, advisory
	InputSummary  string             `json:"input_summary,omitempty" bson:"input_summary,omitempty"`
	OutputSummary string             `json:"output_summary,omitempty" bson:"output_summary,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
