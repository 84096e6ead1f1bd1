package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatReply(t *testing.T) {
	t.Run("bare json", func(t *testing.T) {
		raw := `{"reply": "Spray neem oil", "actions": ["spray neem"], "likelyPests": [{"name": "Aphid", "confidence": 0.9}]}`

		parsed := ParseChatReply(raw)
		require.NotNil(t, parsed.Structured)
		assert.Nil(t, parsed.Fallback)
		assert.Equal(t, "Spray neem oil", parsed.Structured.Reply)
		assert.Equal(t, []string{"spray neem"}, parsed.Structured.Actions)
		require.Len(t, parsed.Structured.LikelyPests, 1)
		assert.Equal(t, "Aphid", parsed.Structured.LikelyPests[0].Name)
		assert.InDelta(t, 0.9, parsed.Structured.LikelyPests[0].Confidence, 0.001)
	})

	t.Run("json fence", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"reply\": \"hello\"}\n```\nHope that helps."

		parsed := ParseChatReply(raw)
		require.NotNil(t, parsed.Structured)
		assert.Equal(t, "hello", parsed.Structured.Reply)
	})

	t.Run("plain fence without language tag", func(t *testing.T) {
		raw := "```\n{\"reply\": \"hi\"}\n```"

		parsed := ParseChatReply(raw)
		require.NotNil(t, parsed.Structured)
		assert.Equal(t, "hi", parsed.Structured.Reply)
	})

	t.Run("malformed json falls back", func(t *testing.T) {
		raw := "The aphids are winning, spray neem oil."

		parsed := ParseChatReply(raw)
		require.NotNil(t, parsed.Fallback)
		assert.Nil(t, parsed.Structured)
		assert.Equal(t, raw, parsed.Fallback.Raw)
		assert.Equal(t, "Could not parse structured response", parsed.Fallback.Reason)
	})

	t.Run("truncated json falls back with full raw text", func(t *testing.T) {
		raw := `{"reply": "cut off`

		parsed := ParseChatReply(raw)
		require.NotNil(t, parsed.Fallback)
		assert.Equal(t, raw, parsed.Fallback.Raw)
	})
}

func TestParseObject(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		obj := ParseObject(`{"identified": true, "pest_name": "Whitefly"}`)
		assert.Equal(t, true, obj["identified"])
		assert.Equal(t, "Whitefly", obj["pest_name"])
		assert.NotContains(t, obj, "error")
	})

	t.Run("fenced object", func(t *testing.T) {
		obj := ParseObject("```json\n{\"urgency\": \"high\"}\n```")
		assert.Equal(t, "high", obj["urgency"])
	})

	t.Run("malformed returns raw under reply", func(t *testing.T) {
		raw := "not json at all"
		obj := ParseObject(raw)
		require.NotNil(t, obj)
		assert.Equal(t, raw, obj["reply"])
		assert.Equal(t, "Could not parse structured response", obj["error"])
	})

	t.Run("fallback output reparses to itself", func(t *testing.T) {
		first := ParseObject("not json at all")
		require.Contains(t, first, "error")

		b, err := json.Marshal(first)
		require.NoError(t, err)

		second := ParseObject(string(b))
		assert.Equal(t, first, second)
	})

	t.Run("json null returns fallback", func(t *testing.T) {
		obj := ParseObject("null")
		require.NotNil(t, obj)
		assert.Contains(t, obj, "error")
	})

	t.Run("json array returns fallback", func(t *testing.T) {
		obj := ParseObject(`[1, 2, 3]`)
		require.NotNil(t, obj)
		assert.Contains(t, obj, "error")
	})
}
