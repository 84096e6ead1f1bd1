package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/valyala/fasthttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/database"
	"github.com/krishirakshak/agri-advisor-backend/internal/models"
	"github.com/krishirakshak/agri-advisor-backend/internal/services"
	"github.com/krishirakshak/agri-advisor-backend/utils"
)

// Chat runs one conversational turn and streams the reply as SSE frames.
func Chat(c *fiber.Ctx) error {
	if orchestrator == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service not configured")
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	// The stream outlives this handler, so it cannot use the request context.
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := orchestrator.Run(ctx, userID, req)
	if err != nil {
		cancel()
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Message is required")
		case errors.Is(err, services.ErrConversationNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found")
		default:
			log.Printf("chat pipeline failed: %v", err)
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process message")
		}
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for ev := range stream.Events {
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

type identifyImageRequest struct {
	Image string `json:"image" validate:"required"`
	Crop  string `json:"crop,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// IdentifyImage sends a crop photo to the vision model and returns the pest
// identification.
func IdentifyImage(c *fiber.Ctx) error {
	if aiService == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service not configured")
	}

	var req identifyImageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Image is required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pests, err := catalogStore.ListPests(ctx, 100)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pest catalog")
	}
	names := make([]string, 0, len(pests))
	for _, p := range pests {
		names = append(names, p.Name)
	}

	systemPrompt := fmt.Sprintf(`You are an expert agricultural entomologist analyzing a crop photo from an Indian farm.
Known pests in our database: %s

Identify any pest or disease visible in the image.
Format your response as JSON:
{
  "identified": true,
  "pest_name": "most likely pest",
  "pest_name_hi": "pest name in Hindi",
  "confidence": 0.8,
  "alternatives": [{"name": "other possibility", "confidence": 0.3}],
  "symptoms_visible": ["symptom 1"],
  "immediate_action": "what the farmer should do right now",
  "severity": "low|medium|high"
}
If no pest is visible, set identified to false and explain what you see in immediate_action.`,
		strings.Join(names, ", "))

	userPrompt := "Identify the pest in this crop photo."
	if req.Crop != "" {
		userPrompt += " The crop is " + req.Crop + "."
	}
	if req.Notes != "" {
		userPrompt += " Farmer notes: " + req.Notes
	}

	completion, err := aiService.CompleteVision(ctx, systemPrompt, req.Image, userPrompt)
	if err != nil {
		return aiErrorResponse(c, err)
	}

	result := services.ParseObject(completion.Text)
	logInteraction(userID, "image", "crop: "+req.Crop, completion.Text)

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
		"model":   completion.Model,
		"usage":   completion.Usage,
	})
}

type symptomCheckRequest struct {
	Crop     string   `json:"crop" validate:"required"`
	Symptoms []string `json:"symptoms" validate:"required,min=1"`
	Location string   `json:"location,omitempty"`
}

// SymptomCheck matches described symptoms against the pest catalog and asks
// the model for a diagnosis.
func SymptomCheck(c *fiber.Ctx) error {
	if aiService == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service not configured")
	}

	var req symptomCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Crop and symptoms are required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	records, _, err := retriever.PestRecords(ctx, req.Crop)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load pest catalog")
	}

	knownPests := "[]"
	if len(records) > 0 {
		if b, err := json.Marshal(records); err == nil {
			knownPests = string(b)
		}
	}

	systemPrompt := fmt.Sprintf(`You are an expert agricultural pest diagnostician for Indian farmers.
Crop: %s
Location: %s
Known pests for this crop with their symptoms and advisories: %s

Match the farmer's reported symptoms against the known pests.
Format your response as JSON:
{
  "matches": [{"pest_name": "name", "confidence": 0.8, "matching_symptoms": ["symptom"]}],
  "recommended_actions": ["action following IPM order: prevention, mechanical, biological, chemical last"],
  "urgency": "low|medium|high",
  "follow_up": "what to check next"
}`,
		req.Crop, req.Location, knownPests)

	userMsg := "Observed symptoms: " + strings.Join(req.Symptoms, "; ")

	completion, err := aiService.Complete(ctx, systemPrompt, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: userMsg},
	}, nil)
	if err != nil {
		return aiErrorResponse(c, err)
	}

	result := services.ParseObject(completion.Text)
	logInteraction(userID, "symptom", userMsg, completion.Text)

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
		"model":   completion.Model,
		"usage":   completion.Usage,
	})
}

type advisoryRequest struct {
	Crop     string `json:"crop" validate:"required"`
	Pest     string `json:"pest" validate:"required"`
	Location string `json:"location,omitempty"`
	Language string `json:"language,omitempty"`
}

// fallbackAdvisory is served when the model output cannot be parsed into the
// advisory shape. Generic IPM guidance, safe for any pest.
var fallbackAdvisory = map[string]any{
	"summary": "Could not generate a specific advisory. Follow general IPM practice.",
	"prevention": []string{
		"Use certified seeds and resistant varieties",
		"Rotate crops to break pest cycles",
		"Keep the field free of weeds and crop residue",
	},
	"monitoring": []string{
		"Scout the field twice a week",
		"Install yellow sticky traps and pheromone traps",
	},
	"mechanicalControl": []string{
		"Hand-pick and destroy visible pests and egg masses",
	},
	"biologicalControl": []string{
		"Encourage natural predators like ladybirds and spiders",
		"Apply neem oil 5ml per litre as a first spray",
	},
	"chemicalControl": []string{
		"Use chemicals only as a last resort and consult your local KVK for the right product and dose",
	},
	"safety": "Wear protective clothing, never spray against the wind, and keep children away from treated fields.",
}

// GenerateAdvisory produces a structured IPM advisory for a crop/pest pair.
// Identical requests within an hour are served from cache.
func GenerateAdvisory(c *fiber.Ctx) error {
	if aiService == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service not configured")
	}

	var req advisoryRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := utils.Validate.Struct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Crop and pest are required")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	language := "English"
	if req.Language == "hi" {
		language = "Hindi"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	systemPrompt := fmt.Sprintf(`You are an expert IPM advisor for Indian farmers. Generate a complete pest management advisory.
Crop: %s
Pest: %s
Location: %s
Respond in %s.

Format your response as JSON:
{
  "summary": "one paragraph overview",
  "prevention": ["step"],
  "monitoring": ["what and when to scout"],
  "mechanicalControl": ["step"],
  "biologicalControl": ["step with product and dose"],
  "chemicalControl": ["last-resort option with exact dose and waiting period"],
  "safety": "safety instructions for any chemical use"
}`,
		req.Crop, req.Pest, req.Location, language)

	completion, err := aiService.Complete(ctx, systemPrompt, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Advisory for %s on %s", req.Pest, req.Crop)},
	}, &services.CompletionOptions{
		Temperature: 0.6,
		CacheKey:    fmt.Sprintf("advisory:%s:%s:%s", strings.ToLower(req.Crop), strings.ToLower(req.Pest), req.Language),
	})
	if err != nil {
		return aiErrorResponse(c, err)
	}

	advisory := services.ParseObject(completion.Text)
	if _, failed := advisory["error"]; failed {
		advisory = fallbackAdvisory
	} else if summary, _ := advisory["summary"].(string); summary == "" {
		advisory = fallbackAdvisory
	}

	logInteraction(userID, "advisory", fmt.Sprintf("%s / %s", req.Crop, req.Pest), completion.Text)

	return c.JSON(fiber.Map{
		"success":  true,
		"advisory": advisory,
		"model":    completion.Model,
	})
}

// WeatherAlerts combines live weather with the user's crops and asks the
// model for location-specific pest alerts.
func WeatherAlerts(c *fiber.Ctx) error {
	if aiService == nil || weatherService == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Weather alerts not configured")
	}
	userID := c.Locals("userId").(primitive.ObjectID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var user models.User
	if err := database.GetCollection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load user")
	}

	location := user.Location
	if location == "" {
		location = "Punjab, India"
	}
	city := strings.TrimSpace(strings.Split(location, ",")[0])

	current, err := weatherService.Current(ctx, city)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch weather")
	}
	forecast, err := weatherService.Forecast(ctx, city)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to fetch forecast")
	}

	cropNames, err := userCropNames(ctx, userID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load crops")
	}
	cropList := strings.Join(cropNames, ", ")
	if cropList == "" {
		cropList = "general field crops"
	}

	weatherJSON, _ := json.Marshal(fiber.Map{"current": current, "forecast": forecast})
	systemPrompt := fmt.Sprintf(`You are an agricultural meteorologist generating pest and disease alerts for Indian farmers.
Location: %s
Farmer's crops: %s
Weather data: %s

Generate weather-driven pest alerts for the next few days.
Format your response as JSON:
{
  "alerts": [{"title": "alert title", "title_hi": "in Hindi", "description": "what to do", "risk_level": "low|medium|high", "crop": "affected crop"}]
}`,
		location, cropList, weatherJSON)

	alerts := []any{}
	completion, err := aiService.Complete(ctx, systemPrompt, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "Generate pest alerts for my crops based on this weather."},
	}, &services.CompletionOptions{
		Temperature: 0.5,
		CacheKey:    fmt.Sprintf("alerts:%s:%s", strings.ToLower(city), time.Now().Format("2006-01-02")),
	})
	if err == nil {
		if parsed, ok := services.ParseObject(completion.Text)["alerts"].([]any); ok {
			alerts = parsed
		}
	}

	// The risk heuristic still works when the model does not.
	if len(alerts) == 0 {
		risk := services.PestRisk(current.Humidity, current.Temp, current.Condition)
		alerts = append(alerts, fiber.Map{
			"title":       fmt.Sprintf("%s pest risk from current weather", risk),
			"description": "Humid and warm conditions can favour pest buildup. Scout your fields regularly.",
			"risk_level":  strings.ToLower(risk),
		})
	}

	region := ""
	if parts := strings.SplitN(location, ",", 2); len(parts) == 2 {
		region = strings.TrimSpace(parts[1])
	}

	return c.JSON(fiber.Map{
		"success": true,
		"weather": fiber.Map{
			"current":  current,
			"forecast": forecast,
		},
		"alerts": alerts,
		"location": fiber.Map{
			"city":   city,
			"region": region,
		},
	})
}

func userCropNames(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	cursor, err := database.GetCollection("user_crops").Find(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	userCrops := []models.UserCrop{}
	if err := cursor.All(ctx, &userCrops); err != nil {
		return nil, err
	}
	if len(userCrops) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(userCrops))
	for _, uc := range userCrops {
		ids = append(ids, uc.CropID)
	}

	cropCursor, err := database.GetCollection("crops").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cropCursor.Close(ctx)

	crops := []models.Crop{}
	if err := cropCursor.All(ctx, &crops); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(crops))
	for _, crop := range crops {
		names = append(names, crop.Name)
	}
	return names, nil
}

// logInteraction writes a best-effort AI log entry off the request path.
func logInteraction(userID primitive.ObjectID, logType, input, output string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry := &models.AILog{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Type:          logType,
		InputSummary:  truncateRunes(input, 200),
		OutputSummary: truncateRunes(output, 200),
		CreatedAt:     time.Now(),
	}
	if err := aiLogStore.Create(ctx, entry); err != nil {
		log.Printf("ai log write failed: %v", err)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// aiErrorResponse maps the completion error taxonomy onto HTTP statuses.
func aiErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAuthentication):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "AI service authentication failed")
	case errors.Is(err, services.ErrQuotaExceeded):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service quota exceeded")
	case errors.Is(err, services.ErrRateLimited):
		return utils.ErrorResponse(c, fiber.StatusTooManyRequests, "AI service rate limit reached, try again shortly")
	default:
		log.Printf("ai request failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "AI service error")
	}
}
