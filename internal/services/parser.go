package services

import (
	"encoding/json"
	"regexp"

	"github.com/krishirakshak/agri-advisor-backend/internal/models"
)

// Models are asked to answer in JSON but often wrap it in a markdown code
// fence. The fence is stripped before parsing; anything unparseable falls
// back to a plain-text reply. Parsing never fails past this boundary.

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

const parseFailureReason = "Could not parse structured response"

func extractJSON(raw string) string {
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// StructuredReply is the JSON envelope the chat prompt asks the model for.
type StructuredReply struct {
	Reply             string             `json:"reply"`
	LikelyPests       []models.PestGuess `json:"likelyPests"`
	Actions           []string           `json:"actions"`
	Warnings          []string           `json:"warnings"`
	FollowUpQuestions []string           `json:"followUpQuestions"`
}

// FallbackReply carries a model answer that could not be decoded.
type FallbackReply struct {
	Raw    string
	Reason string
}

// ParsedReply is a tagged union: exactly one of Structured or Fallback is
// non-nil. Callers must pattern-match on which.
type ParsedReply struct {
	Structured *StructuredReply
	Fallback   *FallbackReply
}

// ParseChatReply decodes a raw model response into a ParsedReply. It is
// total: malformed input produces a Fallback, never an error.
func ParseChatReply(raw string) ParsedReply {
	var reply StructuredReply
	if err := json.Unmarshal([]byte(extractJSON(raw)), &reply); err != nil {
		return ParsedReply{Fallback: &FallbackReply{Raw: raw, Reason: parseFailureReason}}
	}
	return ParsedReply{Structured: &reply}
}

// ParseObject decodes a raw model response into a generic object for the
// endpoints with response shapes of their own. On failure the raw text comes
// back under "reply" with an "error" flag; the result is never nil.
func ParseObject(raw string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &obj); err != nil || obj == nil {
		return map[string]any{
			"reply": raw,
			"error": parseFailureReason,
		}
	}
	return obj
}
