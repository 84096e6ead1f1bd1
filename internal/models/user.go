package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email" validate:"required,email"`
	Password     string             `json:"-" bson:"password" validate:"required,min=6"`
	Name         string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Location     string             `json:"location" bson:"location"`
	Language     string             `json:"language" bson:"language"` // "en" or "hi"
	ProfileImage string             `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	Roles        []string           `json:"roles" bson:"roles"` // farmer, expert, admin
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name         string  `json:"name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Location     string  `json:"location,omitempty"`
	Language     string  `json:"language,omitempty" validate:"omitempty,oneof=en hi"`
	ProfileImage *string `json:"profileImage,omitempty"`
}
