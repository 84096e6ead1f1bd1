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

const communityTimeout = 10 * time.Second

// GetPosts lists recent community posts with reply counts and author info.
// When the caller is authenticated, each post also carries has_liked.
func GetPosts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	limit := int64(c.QueryInt("limit", 50))

	filter := bson.M{}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	cursor, err := database.GetCollection("community_posts").Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load posts")
	}
	defer cursor.Close(ctx)

	posts := []models.CommunityPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load posts")
	}

	userID, authed := c.Locals("userId").(primitive.ObjectID)

	replies := database.GetCollection("community_replies")
	likes := database.GetCollection("user_likes")
	users := database.GetCollection("users")

	out := make([]fiber.Map, 0, len(posts))
	for _, post := range posts {
		replyCount, err := replies.CountDocuments(ctx, bson.M{"post_id": post.ID})
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load posts")
		}

		hasLiked := false
		if authed {
			n, err := likes.CountDocuments(ctx, bson.M{"post_id": post.ID, "user_id": userID})
			if err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load posts")
			}
			hasLiked = n > 0
		}

		author := fiber.Map{"name": "Unknown", "location": ""}
		var postAuthor models.User
		if err := users.FindOne(ctx, bson.M{"_id": post.UserID}).Decode(&postAuthor); err == nil {
			author = fiber.Map{"name": postAuthor.Name, "location": postAuthor.Location}
		}

		out = append(out, fiber.Map{
			"post":        post,
			"reply_count": replyCount,
			"has_liked":   hasLiked,
			"author":      author,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"posts":   out,
	})
}

func CreatePost(c *fiber.Ctx) error {
	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Title is required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	post := models.CommunityPost{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		Status:      "open",
		CreatedAt:   time.Now(),
	}
	if req.CropID != "" {
		cropID, err := primitive.ObjectIDFromHex(req.CropID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid crop_id")
		}
		post.CropID = cropID
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	if _, err := database.GetCollection("community_posts").InsertOne(ctx, post); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

// ToggleLike likes a post, or removes the like if it already exists.
func ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	posts := database.GetCollection("community_posts")
	likes := database.GetCollection("user_likes")

	if n, err := posts.CountDocuments(ctx, bson.M{"_id": postID}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load post")
	} else if n == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	res, err := likes.DeleteOne(ctx, bson.M{"post_id": postID, "user_id": userID})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update like")
	}

	liked := false
	delta := -1
	if res.DeletedCount == 0 {
		_, err := likes.InsertOne(ctx, models.UserLike{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			PostID:    postID,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update like")
		}
		liked = true
		delta = 1
	}

	if _, err := posts.UpdateByID(ctx, postID, bson.M{"$inc": bson.M{"upvotes": delta}}); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update like")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"liked":   liked,
	})
}

func GetReplies(c *fiber.Ctx) error {
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	cursor, err := database.GetCollection("community_replies").Find(
		ctx,
		bson.M{"post_id": postID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load replies")
	}
	defer cursor.Close(ctx)

	replies := []models.CommunityReply{}
	if err := cursor.All(ctx, &replies); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load replies")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"replies": replies,
	})
}

func CreateReply(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	var req models.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Content is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	var post models.CommunityPost
	err = database.GetCollection("community_posts").FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load post")
	}

	reply := models.CommunityReply{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		UserID:    userID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if _, err := database.GetCollection("community_replies").InsertOne(ctx, reply); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create reply")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"reply":   reply,
	})
}

// DeletePost removes a post the user owns, along with its replies and likes.
func DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	postID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	res, err := database.GetCollection("community_posts").DeleteOne(ctx, bson.M{"_id": postID, "user_id": userID})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete post")
	}
	if res.DeletedCount == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Post not found")
	}

	// Orphan cleanup, best-effort.
	database.GetCollection("community_replies").DeleteMany(ctx, bson.M{"post_id": postID})
	database.GetCollection("user_likes").DeleteMany(ctx, bson.M{"post_id": postID})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted successfully",
	})
}

func DeleteReply(c *fiber.Ctx) error {
	userID := c.Locals("userId").(primitive.ObjectID)
	replyID, err := primitive.ObjectIDFromHex(c.Params("reply_id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Reply not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), communityTimeout)
	defer cancel()

	res, err := database.GetCollection("community_replies").DeleteOne(ctx, bson.M{"_id": replyID, "user_id": userID})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete reply")
	}
	if res.DeletedCount == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Reply not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Reply deleted successfully",
	})
}
