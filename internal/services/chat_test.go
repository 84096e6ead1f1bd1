package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

type fakeConversations struct {
	existing *models.Conversation
	created  []*models.Conversation
	touched  []int
	getErr   error
	touchErr error
}

func (f *fakeConversations) Get(ctx context.Context, id, userID primitive.ObjectID) (*models.Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.existing != nil && f.existing.ID == id && f.existing.UserID == userID {
		return f.existing, nil
	}
	return nil, nil
}

func (f *fakeConversations) Create(ctx context.Context, conv *models.Conversation) error {
	f.created = append(f.created, conv)
	return nil
}

func (f *fakeConversations) Touch(ctx context.Context, id primitive.ObjectID, delta int) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, delta)
	return nil
}

type fakeMessages struct {
	history   []models.Message
	created   []*models.Message
	createErr error
}

func (f *fakeMessages) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	return f.history, nil
}

func (f *fakeMessages) Create(ctx context.Context, msg *models.Message) error {
	if f.createErr != nil && msg.Role == "assistant" {
		return f.createErr
	}
	f.created = append(f.created, msg)
	return nil
}

type fakeLogs struct {
	entries []*models.AILog
	err     error
}

func (f *fakeLogs) Create(ctx context.Context, entry *models.AILog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeCompleter struct {
	chunks       []string
	startErr     error
	streamErr    error
	systemPrompt string
	msgs         []openai.ChatCompletionMessage
}

func (f *fakeCompleter) CompleteStream(ctx context.Context, systemPrompt string, msgs []openai.ChatCompletionMessage) (*CompletionStream, error) {
	f.systemPrompt = systemPrompt
	f.msgs = msgs
	if f.startErr != nil {
		return nil, f.startErr
	}
	ch := make(chan string, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return &CompletionStream{C: ch, err: f.streamErr}, nil
}

func (f *fakeCompleter) Model() string { return "test-model" }

type fakeContextSource struct {
	fragment string
	err      error
	crop     string
}

func (f *fakeContextSource) PestContext(ctx context.Context, cropName string) (string, error) {
	f.crop = cropName
	return f.fragment, f.err
}

type chatFixture struct {
	conversations *fakeConversations
	messages      *fakeMessages
	logs          *fakeLogs
	completer     *fakeCompleter
	retriever     *fakeContextSource
	orch          *Orchestrator
}

func newChatFixture(completer *fakeCompleter) *chatFixture {
	f := &chatFixture{
		conversations: &fakeConversations{},
		messages:      &fakeMessages{},
		logs:          &fakeLogs{},
		completer:     completer,
		retriever:     &fakeContextSource{},
	}
	f.orch = NewOrchestrator(f.conversations, f.messages, f.logs, f.completer, f.retriever)
	f.orch.wordDelay = 0
	return f
}

func drain(t *testing.T, stream *ChatStream) []any {
	t.Helper()
	events := []any{}
	for ev := range stream.Events {
		events = append(events, ev)
	}
	return events
}

func chunksText(events []any) string {
	var b strings.Builder
	for _, ev := range events {
		if chunk, ok := ev.(ChunkEvent); ok {
			b.WriteString(chunk.Content)
		}
	}
	return b.String()
}

func TestOrchestratorNewConversation(t *testing.T) {
	userID := primitive.NewObjectID()
	f := newChatFixture(&fakeCompleter{
		chunks: []string{
			`{"reply": "Spray neem oil at dusk",`,
			` "likelyPests": [{"name": "Aphid", "confidence": 0.8}],`,
			` "actions": ["spray neem oil"], "warnings": ["avoid midday spraying"],`,
			` "followUpQuestions": ["How large is the affected area?"]}`,
		},
	})

	stream, err := f.orch.Run(context.Background(), userID, models.ChatRequest{
		Message: "My cotton has aphids, what should I do?",
		Context: &models.ChatContext{Crop: "Cotton", Location: "Ludhiana", Language: "en"},
	})
	require.NoError(t, err)
	events := drain(t, stream)

	// conversation created with request context applied
	require.Len(t, f.conversations.created, 1)
	conv := f.conversations.created[0]
	assert.Equal(t, userID, conv.UserID)
	assert.Equal(t, "My cotton has aphids, what should I do?", conv.Title)
	assert.Equal(t, "Cotton", conv.CropContext)
	assert.Equal(t, "Ludhiana", conv.Location)
	assert.True(t, conv.IsActive)

	// first event binds the conversation id
	require.NotEmpty(t, events)
	first, ok := events[0].(ConversationIDEvent)
	require.True(t, ok)
	assert.Equal(t, "conversation_id", first.Type)
	assert.Equal(t, conv.ID.Hex(), first.ConversationID)

	// user turn persisted before the assistant turn
	require.Len(t, f.messages.created, 2)
	assert.Equal(t, "user", f.messages.created[0].Role)
	assert.Equal(t, "My cotton has aphids, what should I do?", f.messages.created[0].Content)
	assert.Equal(t, "assistant", f.messages.created[1].Role)
	assert.Equal(t, "Spray neem oil at dusk", f.messages.created[1].Content)
	assert.Equal(t, "test-model", f.messages.created[1].AIModel)
	require.Len(t, f.messages.created[1].Metadata.LikelyPests, 1)
	assert.Equal(t, "Aphid", f.messages.created[1].Metadata.LikelyPests[0].Name)

	// reply replayed as chunks that reassemble exactly
	assert.Equal(t, "Spray neem oil at dusk", chunksText(events))

	// metadata event carries arrays, never null
	var meta *MetadataEvent
	for _, ev := range events {
		if m, ok := ev.(MetadataEvent); ok {
			meta = &m
		}
	}
	require.NotNil(t, meta)
	assert.Equal(t, []string{"spray neem oil"}, meta.Actions)
	assert.Equal(t, []string{"avoid midday spraying"}, meta.Warnings)
	assert.Equal(t, []string{"How large is the affected area?"}, meta.FollowUpQuestions)

	// terminal done event
	last, ok := events[len(events)-1].(DoneEvent)
	require.True(t, ok)
	assert.Equal(t, "done", last.Type)

	// counters and logs
	assert.Equal(t, []int{2}, f.conversations.touched)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, "chat", f.logs.entries[0].Type)

	// retrieval used the request crop
	assert.Equal(t, "Cotton", f.retriever.crop)
}

func TestOrchestratorEmptyMessage(t *testing.T) {
	f := newChatFixture(&fakeCompleter{})

	_, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, f.conversations.created)
	assert.Empty(t, f.messages.created)
}

func TestOrchestratorConversationNotFound(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		f := newChatFixture(&fakeCompleter{})

		_, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{
			Message:        "hello",
			ConversationID: "not-a-hex-id",
		})
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})

	t.Run("someone else's conversation", func(t *testing.T) {
		other := primitive.NewObjectID()
		f := newChatFixture(&fakeCompleter{})
		f.conversations.existing = &models.Conversation{ID: primitive.NewObjectID(), UserID: other}

		_, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{
			Message:        "hello",
			ConversationID: f.conversations.existing.ID.Hex(),
		})
		assert.ErrorIs(t, err, ErrConversationNotFound)
		assert.Empty(t, f.messages.created)
	})
}

func TestOrchestratorStreamStartFailure(t *testing.T) {
	f := newChatFixture(&fakeCompleter{startErr: ErrRateLimited})

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	require.Len(t, events, 2)
	_, ok := events[0].(ConversationIDEvent)
	assert.True(t, ok)
	errEv, ok := events[1].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "error", errEv.Type)
	assert.Contains(t, errEv.Error, "rate limit")

	// the question survives the failed completion
	require.Len(t, f.messages.created, 1)
	assert.Equal(t, "user", f.messages.created[0].Role)
	assert.Empty(t, f.conversations.touched)
}

func TestOrchestratorMidStreamFailure(t *testing.T) {
	f := newChatFixture(&fakeCompleter{
		chunks:    []string{`{"reply": "partial`},
		streamErr: ErrService,
	})

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	errEv, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok)
	assert.Contains(t, errEv.Error, "service error")

	// nothing from the broken stream leaks as chunks
	assert.Empty(t, chunksText(events))
	require.Len(t, f.messages.created, 1)
}

func TestOrchestratorFallbackReply(t *testing.T) {
	raw := "Aphids love humid weather. Spray neem oil."
	f := newChatFixture(&fakeCompleter{chunks: []string{raw}})

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	// the raw text becomes the reply verbatim
	assert.Equal(t, raw, chunksText(events))
	require.Len(t, f.messages.created, 2)
	assert.Equal(t, raw, f.messages.created[1].Content)

	// metadata is present but empty
	var meta *MetadataEvent
	for _, ev := range events {
		if m, ok := ev.(MetadataEvent); ok {
			meta = &m
		}
	}
	require.NotNil(t, meta)
	assert.Empty(t, meta.LikelyPests)
	assert.NotNil(t, meta.Actions)
	assert.Empty(t, meta.Actions)

	_, ok := events[len(events)-1].(DoneEvent)
	assert.True(t, ok)
}

func TestOrchestratorEmptyReply(t *testing.T) {
	f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": ""}`}})

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	assert.Empty(t, chunksText(events))
	for _, ev := range events {
		_, isChunk := ev.(ChunkEvent)
		assert.False(t, isChunk)
	}
	_, ok := events[len(events)-1].(DoneEvent)
	assert.True(t, ok)
}

func TestOrchestratorExistingConversation(t *testing.T) {
	userID := primitive.NewObjectID()
	convID := primitive.NewObjectID()

	f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})
	f.conversations.existing = &models.Conversation{
		ID:          convID,
		UserID:      userID,
		CropContext: "Rice",
		Location:    "Amritsar",
		Language:    "hi",
		IsActive:    true,
	}
	f.messages.history = []models.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	stream, err := f.orch.Run(context.Background(), userID, models.ChatRequest{
		Message:        "and now?",
		ConversationID: convID.Hex(),
	})
	require.NoError(t, err)
	drain(t, stream)

	// no new conversation
	assert.Empty(t, f.conversations.created)

	// history precedes the new message
	require.Len(t, f.completer.msgs, 3)
	assert.Equal(t, openai.ChatMessageRoleUser, f.completer.msgs[0].Role)
	assert.Equal(t, "earlier question", f.completer.msgs[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, f.completer.msgs[1].Role)
	assert.Equal(t, "and now?", f.completer.msgs[2].Content)

	// conversation settings flow into the prompt
	assert.Contains(t, f.completer.systemPrompt, "preferred language setting: Hindi")
	assert.Contains(t, f.completer.systemPrompt, "Amritsar")
	assert.Equal(t, "Rice", f.retriever.crop)
}

func TestOrchestratorDevanagariMessageSetsHindi(t *testing.T) {
	t.Run("devanagari message overrides english setting", func(t *testing.T) {
		f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})

		stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{
			Message: "मेरी फसल में कीट लग गए हैं",
			Context: &models.ChatContext{Language: "en"},
		})
		require.NoError(t, err)
		drain(t, stream)

		assert.Contains(t, f.completer.systemPrompt, "preferred language setting: Hindi")
	})

	t.Run("english message keeps english", func(t *testing.T) {
		f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})

		stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{
			Message: "my cotton crop has aphids",
		})
		require.NoError(t, err)
		drain(t, stream)

		assert.Contains(t, f.completer.systemPrompt, "preferred language setting: English")
	})
}

func TestOrchestratorPestContextFailure(t *testing.T) {
	f := newChatFixture(&fakeCompleter{})
	f.retriever.err = errors.New("db down")

	_, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{
		Message: "help",
		Context: &models.ChatContext{Crop: "Cotton"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pest context")
}

func TestOrchestratorAssistantSaveFailure(t *testing.T) {
	f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})
	f.messages.createErr = errors.New("write failed")

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	errEv, ok := events[len(events)-1].(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "Failed to save reply", errEv.Error)
	assert.Empty(t, f.conversations.touched)
}

func TestOrchestratorLogFailureDoesNotFailTurn(t *testing.T) {
	f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})
	f.logs.err = errors.New("log store down")

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: "help"})
	require.NoError(t, err)
	events := drain(t, stream)

	_, ok := events[len(events)-1].(DoneEvent)
	assert.True(t, ok)
	assert.Equal(t, []int{2}, f.conversations.touched)
}

func TestOrchestratorLongTitleTruncated(t *testing.T) {
	f := newChatFixture(&fakeCompleter{chunks: []string{`{"reply": "ok"}`}})
	long := strings.Repeat("x", 80)

	stream, err := f.orch.Run(context.Background(), primitive.NewObjectID(), models.ChatRequest{Message: long})
	require.NoError(t, err)
	drain(t, stream)

	require.Len(t, f.conversations.created, 1)
	assert.Equal(t, strings.Repeat("x", 50)+"...", f.conversations.created[0].Title)
}
