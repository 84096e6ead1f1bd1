package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

const conversationTimeout = 10 * time.Second

func CreateConversation(c *fiber.Ctx) error {
	var req models.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	now := time.Now()
	conv := &models.Conversation{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Title:         "New Conversation",
		CropContext:   req.CropContext,
		Location:      "Punjab, India",
		Language:      "en",
		LastMessageAt: now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Title != "" {
		conv.Title = req.Title
	}
	if req.Location != "" {
		conv.Location = req.Location
	}
	if req.Language != "" {
		conv.Language = req.Language
	}

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	if err := conversationStore.Create(ctx, conv); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create conversation")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"conversation": conv,
	})
}

func ListConversations(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	limit := int64(c.QueryInt("limit", 20))
	skip := int64(c.QueryInt("skip", 0))

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	conversations, total, err := conversationStore.List(ctx, userID, limit, skip)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list conversations")
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"conversations": conversations,
		"total":         total,
	})
}

// GetConversation returns a conversation and its full message history.
func GetConversation(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	conv, err := conversationStore.Get(ctx, id, userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load conversation")
	}
	if conv == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	messages, err := messageStore.ListByConversation(ctx, conv.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load messages")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"conversation": conv,
		"messages":     messages,
	})
}

func UpdateConversation(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	var req models.UpdateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	set := bson.M{}
	if req.Title != "" {
		set["title"] = req.Title
	}
	if req.CropContext != nil {
		set["crop_context"] = *req.CropContext
	}
	if req.Location != "" {
		set["location"] = req.Location
	}
	if req.Pinned != nil {
		set["pinned"] = *req.Pinned
	}
	if len(set) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Nothing to update")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	conv, err := conversationStore.Update(ctx, id, userID, set)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update conversation")
	}
	if conv == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"conversation": conv,
	})
}

func DeleteConversation(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	deleted, err := conversationStore.SoftDelete(ctx, id, userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete conversation")
	}
	if !deleted {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Conversation deleted successfully",
	})
}

// AppendMessage adds a message to a conversation without invoking the model,
// used by clients to record offline or imported turns.
func AppendMessage(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	convID, err := primitive.ObjectIDFromHex(c.Params("conversation_id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	var req models.AppendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Role and content are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), conversationTimeout)
	defer cancel()

	conv, err := conversationStore.Get(ctx, convID, userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load conversation")
	}
	if conv == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
	}

	msg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           req.Role,
		Content:        req.Content,
		CreatedAt:      time.Now(),
	}
	if req.Metadata != nil {
		msg.Metadata = *req.Metadata
	}

	if err := messageStore.Create(ctx, msg); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save message")
	}
	if err := conversationStore.Touch(ctx, conv.ID, 1); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update conversation")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}
