package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Crop struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	NameHi    string             `json:"name_hi,omitempty" bson:"name_hi,omitempty"`
	Seasons   []string           `json:"seasons,omitempty" bson:"seasons,omitempty"`
	Stages    []string           `json:"stages,omitempty" bson:"stages,omitempty"`
	ImageURL  string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

type UserCrop struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	CropID    primitive.ObjectID `json:"crop_id" bson:"crop_id"`
	Stage     string             `json:"stage" bson:"stage"`
	IsActive  bool               `json:"is_active" bson:"is_active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type AddUserCropRequest struct {
	CropID string `json:"crop_id" validate:"required"`
	Stage  string `json:"stage,omitempty"`
}
