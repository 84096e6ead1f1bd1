package store

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// Catalog reads the crop/pest/advisory reference data.
type Catalog struct {
	crops      *mongo.Collection
	pests      *mongo.Collection
	advisories *mongo.Collection
}

func NewCatalog(crops, pests, advisories *mongo.Collection) *Catalog {
	return &Catalog{crops: crops, pests: pests, advisories: advisories}
}

// FindCropByName does a case-insensitive substring match and returns
// (nil, nil) when nothing matches.
func (s *Catalog) FindCropByName(ctx context.Context, name string) (*models.Crop, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"}

	var crop models.Crop
	err := s.crops.FindOne(ctx, bson.M{"name": pattern}).Decode(&crop)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &crop, nil
}

func (s *Catalog) FindPestsByCrop(ctx context.Context, cropID primitive.ObjectID) ([]models.Pest, error) {
	cursor, err := s.pests.Find(ctx, bson.M{"crop_id": cropID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	pests := []models.Pest{}
	if err := cursor.All(ctx, &pests); err != nil {
		return nil, err
	}
	return pests, nil
}

// ListPests returns up to limit pests across all crops, for prompt context.
func (s *Catalog) ListPests(ctx context.Context, limit int64) ([]models.Pest, error) {
	cursor, err := s.pests.Find(ctx, bson.M{}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	pests := []models.Pest{}
	if err := cursor.All(ctx, &pests); err != nil {
		return nil, err
	}
	return pests, nil
}

func (s *Catalog) FindAdvisoriesByPests(ctx context.Context, pestIDs []primitive.ObjectID) ([]models.Advisory, error) {
	if len(pestIDs) == 0 {
		return []models.Advisory{}, nil
	}

	cursor, err := s.advisories.Find(ctx, bson.M{"pest_id": bson.M{"$in": pestIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	advisories := []models.Advisory{}
	if err := cursor.All(ctx, &advisories); err != nil {
		return nil, err
	}
	return advisories, nil
}
