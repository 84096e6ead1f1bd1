package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Alert struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title" validate:"required"`
	TitleHi       string             `json:"title_hi,omitempty" bson:"title_hi,omitempty"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	DescriptionHi string             `json:"description_hi,omitempty" bson:"description_hi,omitempty"`
	RiskLevel     string             `json:"risk_level" bson:"risk_level"` // low, medium, high
	CropID        primitive.ObjectID `json:"crop_id,omitempty" bson:"crop_id,omitempty"`
	Location      string             `json:"location,omitempty" bson:"location,omitempty"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
