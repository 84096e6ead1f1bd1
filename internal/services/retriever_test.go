package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

type fakeCatalog struct {
	crop       *models.Crop
	pests      []models.Pest
	advisories []models.Advisory
	err        error
}

func (f *fakeCatalog) FindCropByName(ctx context.Context, name string) (*models.Crop, error) {
	return f.crop, f.err
}

func (f *fakeCatalog) FindPestsByCrop(ctx context.Context, cropID primitive.ObjectID) ([]models.Pest, error) {
	return f.pests, f.err
}

func (f *fakeCatalog) FindAdvisoriesByPests(ctx context.Context, pestIDs []primitive.ObjectID) ([]models.Advisory, error) {
	return f.advisories, f.err
}

func TestRetrieverPestContext(t *testing.T) {
	cropID := primitive.NewObjectID()
	pestID := primitive.NewObjectID()

	t.Run("empty crop name yields empty context", func(t *testing.T) {
		r := NewRetriever(&fakeCatalog{})

		ctx, err := r.PestContext(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, ctx)
	})

	t.Run("unknown crop yields empty context", func(t *testing.T) {
		r := NewRetriever(&fakeCatalog{crop: nil})

		ctx, err := r.PestContext(context.Background(), "dragonfruit")
		require.NoError(t, err)
		assert.Empty(t, ctx)
	})

	t.Run("crop with no pests yields empty context", func(t *testing.T) {
		r := NewRetriever(&fakeCatalog{
			crop:  &models.Crop{ID: cropID, Name: "Cotton"},
			pests: []models.Pest{},
		})

		ctx, err := r.PestContext(context.Background(), "cotton")
		require.NoError(t, err)
		assert.Empty(t, ctx)
	})

	t.Run("matched crop yields labeled block with pests and advisories", func(t *testing.T) {
		r := NewRetriever(&fakeCatalog{
			crop: &models.Crop{ID: cropID, Name: "Cotton"},
			pests: []models.Pest{
				{ID: pestID, CropID: cropID, Name: "Aphid", Symptoms: []string{"curled leaves"}},
			},
			advisories: []models.Advisory{
				{PestID: pestID, Biological: []string{"neem oil spray"}},
			},
		})

		ctx, err := r.PestContext(context.Background(), "cotton")
		require.NoError(t, err)
		assert.Contains(t, ctx, "Relevant pest database for Cotton")
		assert.Contains(t, ctx, "Aphid")
		assert.Contains(t, ctx, "curled leaves")
		assert.Contains(t, ctx, "neem oil spray")
	})

	t.Run("store failure propagates", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		r := NewRetriever(&fakeCatalog{err: storeErr})

		_, err := r.PestContext(context.Background(), "cotton")
		require.Error(t, err)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestRetrieverPestRecords(t *testing.T) {
	cropID := primitive.NewObjectID()
	pestA := primitive.NewObjectID()
	pestB := primitive.NewObjectID()

	r := NewRetriever(&fakeCatalog{
		crop: &models.Crop{ID: cropID, Name: "Rice"},
		pests: []models.Pest{
			{ID: pestA, CropID: cropID, Name: "Stem Borer"},
			{ID: pestB, CropID: cropID, Name: "Brown Planthopper"},
		},
		advisories: []models.Advisory{
			{PestID: pestB, Chemical: []string{"imidacloprid"}},
		},
	})

	records, matched, err := r.PestRecords(context.Background(), "rice")
	require.NoError(t, err)
	assert.Equal(t, "Rice", matched)
	require.Len(t, records, 2)

	assert.Equal(t, "Stem Borer", records[0].Name)
	assert.Nil(t, records[0].Advisory)

	assert.Equal(t, "Brown Planthopper", records[1].Name)
	require.NotNil(t, records[1].Advisory)
	assert.Equal(t, []string{"imidacloprid"}, records[1].Advisory.Chemical)
}
