package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SprayLog struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id"`
	CropID        primitive.ObjectID `json:"crop_id,omitempty" bson:"crop_id,omitempty"`
	PesticideName string             `json:"pesticide_name" bson:"pesticide_name" validate:"required"`
	Dose          string             `json:"dose,omitempty" bson:"dose,omitempty"`
	SprayDate     time.Time          `json:"spray_date" bson:"spray_date"`
	Notes         string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

type CreateSprayLogRequest struct {
	CropID        string     `json:"crop_id,omitempty"`
	PesticideName string     `json:"pesticide_name" validate:"required"`
	Dose          string     `json:"dose,omitempty"`
	SprayDate     *time.Time `json:"spray_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}
