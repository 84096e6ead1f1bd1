package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Conversation struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id"`
	Title         string             `json:"title" bson:"title"`
	CropContext   string             `json:"crop_context,omitempty" bson:"crop_context,omitempty"`
	Location      string             `json:"location" bson:"location"`
	Language      string             `json:"language" bson:"language"` // en, hi, en-GB, en-US, hi-IN
	LastMessageAt time.Time          `json:"last_message_at" bson:"last_message_at"`
	MessageCount  int                `json:"message_count" bson:"message_count"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	Pinned        bool               `json:"pinned" bson:"pinned"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// ChatContext carries optional hints sent alongside a chat message.
type ChatContext struct {
	Crop         string          `json:"crop,omitempty"`
	Location     string          `json:"location,omitempty"`
	Language     string          `json:"language,omitempty"`
	RecentSprays json.RawMessage `json:"recentSprays,omitempty"`
}

type ChatRequest struct {
	Message        string       `json:"message" validate:"required"`
	Context        *ChatContext `json:"context,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

type CreateConversationRequest struct {
	Title       string `json:"title,omitempty"`
	CropContext string `json:"crop_context,omitempty"`
	Location    string `json:"location,omitempty"`
	Language    string `json:"language,omitempty"`
}

type UpdateConversationRequest struct {
	Title       string  `json:"title,omitempty"`
	CropContext *string `json:"crop_context,omitempty"`
	Location    string  `json:"location,omitempty"`
	Pinned      *bool   `json:"pinned,omitempty"`
}
