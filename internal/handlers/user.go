package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

const userTimeout = 10 * time.Second

func UpdateProfile(c *fiber.Ctx) error {
	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid profile fields")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Phone != nil {
		set["phone"] = *req.Phone
	}
	if req.Location != "" {
		set["location"] = req.Location
	}
	if req.Language != "" {
		set["language"] = req.Language
	}
	if req.ProfileImage != nil {
		set["profileImage"] = *req.ProfileImage
	}

	ctx, cancel := context.WithTimeout(context.Background(), userTimeout)
	defer cancel()

	var user models.User
	err := database.GetCollection("users").FindOneAndUpdate(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// GetUserCrops lists the user's active crops joined with catalog data.
func GetUserCrops(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), userTimeout)
	defer cancel()

	cursor, err := database.GetCollection("user_crops").Find(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crops")
	}
	defer cursor.Close(ctx)

	userCrops := []models.UserCrop{}
	if err := cursor.All(ctx, &userCrops); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crops")
	}

	crops := database.GetCollection("crops")
	out := make([]fiber.Map, 0, len(userCrops))
	for _, uc := range userCrops {
		entry := fiber.Map{"user_crop": uc}
		var crop models.Crop
		if err := crops.FindOne(ctx, bson.M{"_id": uc.CropID}).Decode(&crop); err == nil {
			entry["crop"] = crop
		}
		out = append(out, entry)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"crops":   out,
	})
}

func AddUserCrop(c *fiber.Ctx) error {
	var req models.AddUserCropRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "crop_id is required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	cropID, err := primitive.ObjectIDFromHex(req.CropID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid crop_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), userTimeout)
	defer cancel()

	if n, err := database.GetCollection("crops").CountDocuments(ctx, bson.M{"_id": cropID}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check crop")
	} else if n == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Crop not found")
	}

	userCrops := database.GetCollection("user_crops")
	existing, err := userCrops.CountDocuments(ctx, bson.M{"user_id": userID, "crop_id": cropID, "is_active": true})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check crop")
	}
	if existing > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Crop already added")
	}

	now := time.Now()
	uc := models.UserCrop{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CropID:    cropID,
		Stage:     req.Stage,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := userCrops.InsertOne(ctx, uc); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add crop")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"user_crop": uc,
	})
}

func RemoveUserCrop(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Crop not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), userTimeout)
	defer cancel()

	res, err := database.GetCollection("user_crops").UpdateOne(
		ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove crop")
	}
	if res.MatchedCount == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Crop not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Crop removed successfully",
	})
}
