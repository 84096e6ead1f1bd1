package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PestGuess is a single pest prediction with the model's confidence.
type PestGuess struct {
	Name       string  `json:"name" bson:"name"`
	Confidence float64 `json:"confidence" bson:"confidence"`
}

type MessageMetadata struct {
	LikelyPests       []PestGuess `json:"likelyPests,omitempty" bson:"likelyPests,omitempty"`
	Actions           []string    `json:"actions,omitempty" bson:"actions,omitempty"`
	Warnings          []string    `json:"warnings,omitempty" bson:"warnings,omitempty"`
	FollowUpQuestions []string    `json:"followUpQuestions,omitempty" bson:"followUpQuestions,omitempty"`
	CropMentioned     string      `json:"crop_mentioned,omitempty" bson:"crop_mentioned,omitempty"`
	SymptomsMentioned []string    `json:"symptoms_mentioned,omitempty" bson:"symptoms_mentioned,omitempty"`
}

// Message is one chat turn. Messages are append-only and ordered by created_at.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	UserID         primitive.ObjectID `json:"user_id" bson:"user_id"`
	Role           string             `json:"role" bson:"role"` // user, assistant, system
	Content        string             `json:"content" bson:"content"`
	Metadata       MessageMetadata    `json:"metadata" bson:"metadata"`
	AIModel        string             `json:"ai_model,omitempty" bson:"ai_model,omitempty"`
	TokensUsed     int                `json:"tokens_used" bson:"tokens_used"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

type AppendMessageRequest struct {
	Role     string           `json:"role" validate:"required,oneof=user assistant system"`
	Content  string           `json:"content" validate:"required"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}
