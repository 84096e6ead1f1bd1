package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// Messages wraps the chat_messages collection. Messages are append-only.
type Messages struct {
	col *mongo.Collection
}

func NewMessages(col *mongo.Collection) *Messages {
	return &Messages{col: col}
}

// ListByConversation returns the full ordered history, oldest first.
func (s *Messages) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	cursor, err := s.col.Find(
		ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Messages) Create(ctx context.Context, msg *models.Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	return err
}
