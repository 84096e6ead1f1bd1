package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// CatalogSource is the read side of the crop/pest/advisory catalog.
// Lookups that find nothing return (nil, nil); only real store failures
// return an error.
type CatalogSource interface {
	FindCropByName(ctx context.Context, name string) (*models.Crop, error)
	FindPestsByCrop(ctx context.Context, cropID primitive.ObjectID) ([]models.Pest, error)
	FindAdvisoriesByPests(ctx context.Context, pestIDs []primitive.ObjectID) ([]models.Advisory, error)
}

// PestWithAdvisory pairs a pest with its advisory, or nil when none exists.
type PestWithAdvisory struct {
	models.Pest
	Advisory *models.Advisory `json:"advisories"`
}

// Retriever assembles retrieval-augmented context for prompts.
type Retriever struct {
	catalog CatalogSource
}

func NewRetriever(catalog CatalogSource) *Retriever {
	return &Retriever{catalog: catalog}
}

// PestRecords fetches the pests of the named crop merged with their
// advisories. A missing or empty crop name yields no records and no error;
// store failures propagate.
func (r *Retriever) PestRecords(ctx context.Context, cropName string) ([]PestWithAdvisory, string, error) {
	if strings.TrimSpace(cropName) == "" {
		return nil, "", nil
	}

	crop, err := r.catalog.FindCropByName(ctx, cropName)
	if err != nil {
		return nil, "", fmt.Errorf("find crop: %w", err)
	}
	if crop == nil {
		return nil, "", nil
	}

	pests, err := r.catalog.FindPestsByCrop(ctx, crop.ID)
	if err != nil {
		return nil, "", fmt.Errorf("find pests: %w", err)
	}

	pestIDs := make([]primitive.ObjectID, 0, len(pests))
	for _, p := range pests {
		pestIDs = append(pestIDs, p.ID)
	}

	advisories, err := r.catalog.FindAdvisoriesByPests(ctx, pestIDs)
	if err != nil {
		return nil, "", fmt.Errorf("find advisories: %w", err)
	}

	byPest := make(map[primitive.ObjectID]*models.Advisory, len(advisories))
	for i := range advisories {
		byPest[advisories[i].PestID] = &advisories[i]
	}

	merged := make([]PestWithAdvisory, 0, len(pests))
	for _, p := range pests {
		merged = append(merged, PestWithAdvisory{Pest: p, Advisory: byPest[p.ID]})
	}
	return merged, crop.Name, nil
}

// PestContext serializes the merged records as a labeled prompt fragment.
// No matching crop or no pests yields the empty fragment.
func (r *Retriever) PestContext(ctx context.Context, cropName string) (string, error) {
	records, matchedName, err := r.PestRecords(ctx, cropName)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal pest context: %w", err)
	}
	return fmt.Sprintf("\n\nRelevant pest database for %s:\n%s", matchedName, b), nil
}
