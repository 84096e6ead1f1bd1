package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL        = "https://api.groq.com/openai/v1"
	defaultModel       = "openai/gpt-oss-120b"
	defaultVisionModel = "meta-llama/llama-4-maverick-17b-128e-instruct"

	defaultMaxTokens   = 8192
	defaultTemperature = 0.7

	// Responses cached under a key live for an hour; expired entries are
	// swept every ten minutes. Plain TTL, not LRU.
	responseCacheTTL   = time.Hour
	cacheSweepInterval = 10 * time.Minute
)

// Completion client error taxonomy. None of these are retried here; retry
// policy belongs to the caller, and the chat pipeline has none.
var (
	ErrNotConfigured  = errors.New("groq: GROQ_API_KEY is not set")
	ErrAuthentication = errors.New("groq: invalid API key")
	ErrQuotaExceeded  = errors.New("groq: API quota exceeded")
	ErrRateLimited    = errors.New("groq: rate limit exceeded")
	ErrService        = errors.New("groq: service error")
)

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Completion struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

type CompletionOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// CacheKey, when set, short-circuits identical requests through the
	// response cache.
	CacheKey string
}

// CompletionStream is a finite, non-restartable sequence of text fragments.
// The consumer drains C until it is closed, then checks Err. Abandoning the
// channel early is the only cancellation signal; nothing is sent upstream.
type CompletionStream struct {
	C   <-chan string
	err error
}

// Err reports why the stream ended. Valid only after C is closed.
func (s *CompletionStream) Err() error { return s.err }

// AIService wraps the hosted Groq model behind completion, streaming
// completion and vision calls.
type AIService struct {
	client      *openai.Client
	model       string
	visionModel string
	cache       *cache.Cache
}

func NewAIService() (*AIService, error) {
	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL

	model := strings.TrimSpace(os.Getenv("GROQ_MODEL"))
	if model == "" {
		model = defaultModel
	}
	visionModel := strings.TrimSpace(os.Getenv("GROQ_VISION_MODEL"))
	if visionModel == "" {
		visionModel = defaultVisionModel
	}

	return &AIService{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		visionModel: visionModel,
		cache:       cache.New(responseCacheTTL, cacheSweepInterval),
	}, nil
}

func (s *AIService) Model() string { return s.model }

// FlushCache drops every cached completion.
func (s *AIService) FlushCache() { s.cache.Flush() }

func (s *AIService) options(opts *CompletionOptions) CompletionOptions {
	out := CompletionOptions{
		Model:       s.model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	if opts == nil {
		return out
	}
	if opts.Model != "" {
		out.Model = opts.Model
	}
	if opts.Temperature != 0 {
		out.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		out.MaxTokens = opts.MaxTokens
	}
	out.CacheKey = opts.CacheKey
	return out
}

func buildMessages(systemPrompt string, msgs []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	return append(out, msgs...)
}

// Complete performs a single non-streaming completion.
func (s *AIService) Complete(ctx context.Context, systemPrompt string, msgs []openai.ChatCompletionMessage, opts *CompletionOptions) (*Completion, error) {
	o := s.options(opts)

	if o.CacheKey != "" {
		if cached, ok := s.cache.Get(o.CacheKey); ok {
			return cached.(*Completion), nil
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    buildMessages(systemPrompt, msgs),
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
		TopP:        1,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrService)
	}

	completion := &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: o.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if o.CacheKey != "" {
		s.cache.Set(o.CacheKey, completion, cache.DefaultExpiration)
	}
	return completion, nil
}

// CompleteStream starts a streaming completion. A producer goroutine pushes
// text fragments into the returned stream and closes it when the model
// signals completion or the context is cancelled.
func (s *AIService) CompleteStream(ctx context.Context, systemPrompt string, msgs []openai.ChatCompletionMessage) (*CompletionStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    buildMessages(systemPrompt, msgs),
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		TopP:        1,
		Stream:      true,
	})
	if err != nil {
		return nil, classify(err)
	}

	ch := make(chan string, 16)
	cs := &CompletionStream{C: ch}

	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
					cs.err = classify(err)
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case ch <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()

	return cs, nil
}

// CompleteVision runs an image+text completion. Bare base64 payloads are
// normalized into a data URI first.
func (s *AIService) CompleteVision(ctx context.Context, systemPrompt, imageBase64, userPrompt string) (*Completion, error) {
	if userPrompt == "" {
		userPrompt = "Analyze this image"
	}

	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: systemPrompt + "\n\n" + userPrompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: NormalizeImageDataURI(imageBase64),
				},
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.visionModel,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: 0.4,
		MaxTokens:   defaultMaxTokens,
		TopP:        1,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrService)
	}

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: s.visionModel,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// NormalizeImageDataURI ensures the payload is a data URI. Raw base64 is
// assumed to be JPEG, matching what the mobile clients upload.
func NormalizeImageDataURI(imageBase64 string) string {
	if strings.HasPrefix(imageBase64, "data:") {
		return imageBase64
	}
	return "data:image/jpeg;base64," + imageBase64
}

// classify maps an upstream failure onto the client error taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthentication, apiErr.Message)
		case http.StatusPaymentRequired, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrService, err)
}
