package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/internal/services"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

// GetAlerts lists active alerts, optionally filtered by crop or location.
func GetAlerts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{"is_active": true}
	if cropID := c.Query("crop_id"); cropID != "" {
		id, err := primitive.ObjectIDFromHex(cropID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid crop_id")
		}
		filter["crop_id"] = id
	}
	if location := c.Query("location"); location != "" {
		filter["location"] = primitive.Regex{Pattern: location, Options: "i"}
	}

	cursor, err := database.GetCollection("alerts").Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(20),
	)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load alerts")
	}
	defer cursor.Close(ctx)

	alerts := []models.Alert{}
	if err := cursor.All(ctx, &alerts); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load alerts")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"alerts":  alerts,
	})
}

// GetWeatherForecast returns current weather plus the daily forecast for the
// user's location. If the weather provider is unreachable, a neutral fallback
// payload keeps the mobile dashboard rendering.
func GetWeatherForecast(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	location := "Punjab, India"
	var user models.User
	if err := database.GetCollection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err == nil && user.Location != "" {
		location = user.Location
	}
	city := strings.TrimSpace(strings.Split(location, ",")[0])

	if weatherService == nil {
		return c.JSON(weatherFallback(city))
	}

	current, err := weatherService.Current(ctx, city)
	if err != nil {
		return c.JSON(weatherFallback(city))
	}
	forecast, err := weatherService.Forecast(ctx, city)
	if err != nil {
		forecast = []services.ForecastDay{}
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"city":      city,
		"current":   current,
		"forecast":  forecast,
		"pest_risk": services.PestRisk(current.Humidity, current.Temp, current.Condition),
	})
}

func weatherFallback(city string) fiber.Map {
	return fiber.Map{
		"success": true,
		"city":    city,
		"current": fiber.Map{
			"temp":       28,
			"humidity":   65,
			"wind_speed": 12,
			"condition":  "Unknown",
		},
		"forecast":  []services.ForecastDay{},
		"pest_risk": "Medium",
		"fallback":  true,
	}
}
