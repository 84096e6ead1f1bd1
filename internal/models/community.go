package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommunityPost struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	CropID      primitive.ObjectID `json:"crop_id,omitempty" bson:"crop_id,omitempty"`
	Title       string             `json:"title" bson:"title" validate:"required"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Location    string             `json:"location,omitempty" bson:"location,omitempty"`
	Status      string             `json:"status" bson:"status"` // open, resolved, closed
	Upvotes     int                `json:"upvotes" bson:"upvotes"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

type CommunityReply struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Content   string             `json:"content" bson:"content" validate:"required"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

type UserLike struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post_id"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

type CreatePostRequest struct {
	CropID      string `json:"crop_id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Location    string `json:"location,omitempty"`
}

type CreateReplyRequest struct {
	Content string `json:"content" validate:"required"`
}
