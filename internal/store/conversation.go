package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// Conversations wraps the conversations collection. All lookups are scoped by
// both conversation id and owning user id.
type Conversations struct {
	col *mongo.Collection
}

func NewConversations(col *mongo.Collection) *Conversations {
	return &Conversations{col: col}
}

// Get returns the conversation owned by userID, or (nil, nil) when no such
// conversation exists.
func (s *Conversations) Get(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.col.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Conversations) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := s.col.InsertOne(ctx, conv)
	return err
}

// List returns active conversations for a user, pinned first, most recent
// activity next, plus the total count for pagination.
func (s *Conversations) List(ctx context.Context, userID primitive.ObjectID, limit, skip int64) ([]models.Conversation, int64, error) {
	filter := bson.M{"user_id": userID, "is_active": true}

	opts := options.Find().
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "last_message_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, 0, err
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

// Update patches mutable fields, returning (nil, nil) when the conversation
// does not belong to the user.
func (s *Conversations) Update(ctx context.Context, id, userID primitive.ObjectID, set bson.M) (*models.Conversation, error) {
	set["updated_at"] = time.Now()

	var conv models.Conversation
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// SoftDelete flips is_active; conversations are never hard-deleted.
func (s *Conversations) SoftDelete(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := s.col.UpdateOne(
		ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Touch bumps last_message_at and increments message_count. The counter is
// advisory only and may drift under concurrent turns.
func (s *Conversations) Touch(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_message_at": time.Now(), "updated_at": time.Now()},
		"$inc": bson.M{"message_count": delta},
	})
	return err
}
