package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

const (
	defaultLocation = "Punjab, India"
	defaultLanguage = "en"
	summaryMaxRunes = 200

	// Inter-word pacing of the replayed reply.
	defaultWordDelay = 20 * time.Millisecond
)

// Pre-stream failures. Anything after the event channel opens becomes an
// ErrorEvent instead.
var (
	ErrEmptyMessage         = errors.New("message is required")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Events emitted over a ChatStream, each serialized as one SSE frame.
type ConversationIDEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type ChunkEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type MetadataEvent struct {
	Type              string             `json:"type"`
	LikelyPests       []models.PestGuess `json:"likelyPests"`
	Actions           []string           `json:"actions"`
	Warnings          []string           `json:"warnings"`
	FollowUpQuestions []string           `json:"followUpQuestions"`
}

type DoneEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type ConversationStore interface {
	Get(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	Touch(ctx context.Context, id primitive.ObjectID, delta int) error
}

type MessageStore interface {
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error)
	Create(ctx context.Context, msg *models.Message) error
}

type InteractionLogger interface {
	Create(ctx context.Context, entry *models.AILog) error
}

type StreamCompleter interface {
	CompleteStream(ctx context.Context, systemPrompt string, msgs []openai.ChatCompletionMessage) (*CompletionStream, error)
	Model() string
}

type ContextSource interface {
	PestContext(ctx context.Context, cropName string) (string, error)
}

// ChatStream is the ordered event sequence for one chat turn. Events is
// closed after the terminal done or error event.
type ChatStream struct {
	Conversation *models.Conversation
	Events       <-chan any
}

// Orchestrator runs the chat pipeline: resolve the conversation, persist the
// user turn, build retrieval context, drain the model stream, parse, replay
// the reply word by word and persist the assistant turn.
type Orchestrator struct {
	conversations ConversationStore
	messages      MessageStore
	logs          InteractionLogger
	ai            StreamCompleter
	retriever     ContextSource
	wordDelay     time.Duration
}

func NewOrchestrator(conversations ConversationStore, messages MessageStore, logs InteractionLogger, ai StreamCompleter, retriever ContextSource) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		messages:      messages,
		logs:          logs,
		ai:            ai,
		retriever:     retriever,
		wordDelay:     defaultWordDelay,
	}
}

// Run validates the request and performs every store operation that must
// happen before the response stream opens; it then spawns the streaming
// stage and returns. Returned errors map to plain HTTP errors; once Run
// returns a ChatStream, all failures travel over the event channel.
func (o *Orchestrator) Run(ctx context.Context, userID primitive.ObjectID, req models.ChatRequest) (*ChatStream, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := o.resolveConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	history, err := o.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// Persist the user turn before calling the model so the question
	// survives a failed completion.
	userMsg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           "user",
		Content:        req.Message,
		CreatedAt:      time.Now(),
	}
	if err := o.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	cropName := conv.CropContext
	if cropName == "" && req.Context != nil {
		cropName = req.Context.Crop
	}

	pestContext, err := o.retriever.PestContext(ctx, cropName)
	if err != nil {
		return nil, fmt.Errorf("pest context: %w", err)
	}

	// Devanagari in the current message wins over the stored setting.
	preferred := "English"
	if conv.Language == "hi" || strings.HasPrefix(conv.Language, "hi-") || ContainsDevanagari(req.Message) {
		preferred = "Hindi"
	}

	recentSprays := ""
	if req.Context != nil && len(req.Context.RecentSprays) > 0 {
		recentSprays = string(req.Context.RecentSprays)
	}

	systemPrompt := BuildChatSystemPrompt(ChatPromptParams{
		PreferredLanguage: preferred,
		Location:          conv.Location,
		Crop:              cropName,
		PestContext:       pestContext,
		RecentSprays:      recentSprays,
	})

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	events := make(chan any, 8)
	go o.stream(ctx, events, conv, userID, req.Message, systemPrompt, msgs)

	return &ChatStream{Conversation: conv, Events: events}, nil
}

func (o *Orchestrator) resolveConversation(ctx context.Context, userID primitive.ObjectID, req models.ChatRequest) (*models.Conversation, error) {
	if req.ConversationID != "" {
		id, err := primitive.ObjectIDFromHex(req.ConversationID)
		if err != nil {
			return nil, ErrConversationNotFound
		}
		conv, err := o.conversations.Get(ctx, id, userID)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Title:         TruncateTitle(req.Message),
		Location:      defaultLocation,
		Language:      defaultLanguage,
		LastMessageAt: now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Context != nil {
		conv.CropContext = req.Context.Crop
		if req.Context.Location != "" {
			conv.Location = req.Context.Location
		}
		if req.Context.Language != "" {
			conv.Language = req.Context.Language
		}
	}
	if err := o.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (o *Orchestrator) stream(ctx context.Context, events chan<- any, conv *models.Conversation, userID primitive.ObjectID, userMessage, systemPrompt string, msgs []openai.ChatCompletionMessage) {
	defer close(events)

	// Emitted first so the caller can bind future turns before the answer
	// exists.
	if !o.emit(ctx, events, ConversationIDEvent{Type: "conversation_id", ConversationID: conv.ID.Hex()}) {
		return
	}

	cs, err := o.ai.CompleteStream(ctx, systemPrompt, msgs)
	if err != nil {
		o.emit(ctx, events, ErrorEvent{Type: "error", Error: err.Error()})
		return
	}

	// Drain the whole model stream before replying anything: the raw stream
	// carries a JSON envelope that must not reach the client half-parsed.
	var full strings.Builder
	for chunk := range cs.C {
		full.WriteString(chunk)
	}
	if err := cs.Err(); err != nil {
		o.emit(ctx, events, ErrorEvent{Type: "error", Error: err.Error()})
		return
	}

	var reply string
	var meta models.MessageMetadata
	parsed := ParseChatReply(full.String())
	switch {
	case parsed.Structured != nil:
		reply = parsed.Structured.Reply
		meta = models.MessageMetadata{
			LikelyPests:       parsed.Structured.LikelyPests,
			Actions:           parsed.Structured.Actions,
			Warnings:          parsed.Structured.Warnings,
			FollowUpQuestions: parsed.Structured.FollowUpQuestions,
		}
	case parsed.Fallback != nil:
		reply = parsed.Fallback.Raw
	}

	if !o.replay(ctx, events, reply) {
		return
	}

	assistantMsg := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           "assistant",
		Content:        reply,
		Metadata:       meta,
		AIModel:        o.ai.Model(),
		CreatedAt:      time.Now(),
	}
	if err := o.messages.Create(ctx, assistantMsg); err != nil {
		o.emit(ctx, events, ErrorEvent{Type: "error", Error: "Failed to save reply"})
		return
	}

	if err := o.conversations.Touch(ctx, conv.ID, 2); err != nil {
		o.emit(ctx, events, ErrorEvent{Type: "error", Error: "Failed to update conversation"})
		return
	}

	// Best-effort: a failed log write must not fail the turn.
	entry := &models.AILog{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Type:          "chat",
		InputSummary:  summarize(userMessage),
		OutputSummary: summarize(reply),
		CreatedAt:     time.Now(),
	}
	if err := o.logs.Create(ctx, entry); err != nil {
		log.Printf("ai log write failed: %v", err)
	}

	if !o.emit(ctx, events, MetadataEvent{
		Type:              "metadata",
		LikelyPests:       orEmptyPests(meta.LikelyPests),
		Actions:           orEmpty(meta.Actions),
		Warnings:          orEmpty(meta.Warnings),
		FollowUpQuestions: orEmpty(meta.FollowUpQuestions),
	}) {
		return
	}
	o.emit(ctx, events, DoneEvent{Type: "done"})
}

// replay re-emits the parsed reply word by word with a small delay, keeping
// the streaming feel despite the internal buffering. A cancelled context
// stops the replay and skips remaining delays.
func (o *Orchestrator) replay(ctx context.Context, events chan<- any, reply string) bool {
	if reply == "" {
		return true
	}
	words := strings.Split(reply, " ")
	for i, word := range words {
		if i < len(words)-1 {
			word += " "
		}
		if !o.emit(ctx, events, ChunkEvent{Type: "chunk", Content: word}) {
			return false
		}
		if i < len(words)-1 && o.wordDelay > 0 {
			timer := time.NewTimer(o.wordDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return false
			}
		}
	}
	return true
}

func (o *Orchestrator) emit(ctx context.Context, events chan<- any, ev any) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func summarize(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryMaxRunes {
		return s
	}
	return string(runes[:summaryMaxRunes])
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyPests(v []models.PestGuess) []models.PestGuess {
	if v == nil {
		return []models.PestGuess{}
	}
	return v
}
