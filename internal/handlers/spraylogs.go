package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

// GetSprayLogs lists the user's spray records, most recent spray first.
func GetSprayLogs(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := database.GetCollection("spray_logs").Find(
		ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "spray_date", Value: -1}}),
	)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load spray logs")
	}
	defer cursor.Close(ctx)

	logs := []models.SprayLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load spray logs")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"spray_logs": logs,
	})
}

func CreateSprayLog(c *fiber.Ctx) error {
	var req models.CreateSprayLogRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Pesticide name is required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	entry := models.SprayLog{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		PesticideName: req.PesticideName,
		Dose:          req.Dose,
		SprayDate:     time.Now(),
		Notes:         req.Notes,
		CreatedAt:     time.Now(),
	}
	if req.SprayDate != nil {
		entry.SprayDate = *req.SprayDate
	}
	if req.CropID != "" {
		cropID, err := primitive.ObjectIDFromHex(req.CropID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid crop_id")
		}
		entry.CropID = cropID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := database.GetCollection("spray_logs").InsertOne(ctx, entry); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save spray log")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"spray_log": entry,
	})
}

func DeleteSprayLog(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Spray log not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := database.GetCollection("spray_logs").DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete spray log")
	}
	if res.DeletedCount == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Spray log not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Spray log deleted successfully",
	})
}
