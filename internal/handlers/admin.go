package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

// GetAdminStats returns collection counts for the admin dashboard.
func GetAdminStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	counts := fiber.Map{}
	for _, name := range []string{
		"users",
		"crops",
		"pests",
		"advisories",
		"chat_conversations",
		"chat_messages",
		"ai_logs",
		"spray_logs",
		"community_posts",
		"community_replies",
		"alerts",
	} {
		n, err := database.GetCollection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load stats")
		}
		counts[name] = n
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   counts,
	})
}
