package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

const catalogTimeout = 10 * time.Second

// GetCrops lists the crop catalog, optionally filtered by season.
func GetCrops(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	filter := bson.M{}
	if season := c.Query("season"); season != "" {
		filter["seasons"] = season
	}

	cursor, err := database.GetCollection("crops").Find(ctx, filter)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crops")
	}
	defer cursor.Close(ctx)

	crops := []models.Crop{}
	if err := cursor.All(ctx, &crops); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crops")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"crops":   crops,
	})
}

// GetCrop returns one crop with its pests.
func GetCrop(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Crop not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	var crop models.Crop
	err = database.GetCollection("crops").FindOne(ctx, bson.M{"_id": id}).Decode(&crop)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Crop not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crop")
	}

	pests, err := catalogStore.FindPestsByCrop(ctx, crop.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pests")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"crop":    crop,
		"pests":   pests,
	})
}

// GetPests lists pests, optionally filtered by crop or season.
func GetPests(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	filter := bson.M{}
	if cropID := c.Query("crop_id"); cropID != "" {
		id, err := primitive.ObjectIDFromHex(cropID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid crop_id")
		}
		filter["crop_id"] = id
	}
	if season := c.Query("season"); season != "" {
		filter["season"] = season
	}

	cursor, err := database.GetCollection("pests").Find(ctx, filter)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pests")
	}
	defer cursor.Close(ctx)

	pests := []models.Pest{}
	if err := cursor.All(ctx, &pests); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pests")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"pests":   pests,
	})
}

// GetPest returns one pest with its advisory.
func GetPest(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Pest not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
	defer cancel()

	var pest models.Pest
	err = database.GetCollection("pests").FindOne(ctx, bson.M{"_id": id}).Decode(&pest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Pest not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pest")
	}

	var advisory *models.Advisory
	var found models.Advisory
	err = database.GetCollection("advisories").FindOne(ctx, bson.M{"pest_id": pest.ID}).Decode(&found)
	if err == nil {
		advisory = &found
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load advisory")
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"pest":     pest,
		"advisory": advisory,
	})
}
