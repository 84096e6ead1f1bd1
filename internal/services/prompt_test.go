package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsDevanagari(t *testing.T) {
	assert.True(t, ContainsDevanagari("मेरी फसल में कीट लग गए हैं"))
	assert.True(t, ContainsDevanagari("my kapas has माहू on it"))
	assert.False(t, ContainsDevanagari("my cotton crop has aphids"))
	assert.False(t, ContainsDevanagari(""))
}

func TestTruncateTitle(t *testing.T) {
	t.Run("short message kept whole", func(t *testing.T) {
		assert.Equal(t, "aphids on cotton", TruncateTitle("aphids on cotton"))
	})

	t.Run("long message truncated with ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 80)
		title := TruncateTitle(long)
		assert.Equal(t, strings.Repeat("a", 50)+"...", title)
	})

	t.Run("truncation counts runes not bytes", func(t *testing.T) {
		long := strings.Repeat("क", 60)
		title := TruncateTitle(long)
		assert.Equal(t, strings.Repeat("क", 50)+"...", title)
	})

	t.Run("exactly at limit untouched", func(t *testing.T) {
		msg := strings.Repeat("b", 50)
		assert.Equal(t, msg, TruncateTitle(msg))
	})
}

func TestBuildChatSystemPrompt(t *testing.T) {
	t.Run("includes context fields", func(t *testing.T) {
		prompt := BuildChatSystemPrompt(ChatPromptParams{
			PreferredLanguage: "Hindi",
			Location:          "Ludhiana, Punjab",
			Crop:              "Cotton",
			PestContext:       "\n\nRelevant pest database for Cotton:\n[]",
			RecentSprays:      `[{"pesticide":"neem oil"}]`,
		})

		assert.Contains(t, prompt, "Hindi")
		assert.Contains(t, prompt, "Ludhiana, Punjab")
		assert.Contains(t, prompt, "Cotton")
		assert.Contains(t, prompt, "Relevant pest database for Cotton")
		assert.Contains(t, prompt, `neem oil`)
		assert.Contains(t, prompt, "IPM")
		assert.Contains(t, prompt, "Devanagari")
	})

	t.Run("defaults for missing crop and sprays", func(t *testing.T) {
		prompt := BuildChatSystemPrompt(ChatPromptParams{
			PreferredLanguage: "English",
			Location:          "Punjab, India",
		})

		assert.Contains(t, prompt, "not specified")
		assert.Contains(t, prompt, "Recent spray history: []")
	})

	t.Run("asks for the json envelope", func(t *testing.T) {
		prompt := BuildChatSystemPrompt(ChatPromptParams{PreferredLanguage: "English"})

		assert.Contains(t, prompt, `"reply"`)
		assert.Contains(t, prompt, `"likelyPests"`)
		assert.Contains(t, prompt, `"actions"`)
		assert.Contains(t, prompt, `"warnings"`)
		assert.Contains(t, prompt, `"followUpQuestions"`)
	})
}
