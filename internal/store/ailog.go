package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// AILogs wraps the ai_logs collection (append-only, best-effort).
type AILogs struct {
	col *mongo.Collection
}

func NewAILogs(col *mongo.Collection) *AILogs {
	return &AILogs{col: col}
}

func (s *AILogs) Create(ctx context.Context, entry *models.AILog) error {
	_, err := s.col.InsertOne(ctx, entry)
	return err
}
