package services

import (
	"fmt"
)

const titleMaxRunes = 50

// ContainsDevanagari reports whether the text uses the Devanagari block,
// which is how Hindi/Hinglish input is detected.
func ContainsDevanagari(s string) bool {
	for _, r := range s {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// TruncateTitle derives a conversation title from the first message.
func TruncateTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxRunes {
		return message
	}
	return string(runes[:titleMaxRunes]) + "..."
}

type ChatPromptParams struct {
	PreferredLanguage string // "Hindi" or "English"
	Location          string
	Crop              string
	PestContext       string
	RecentSprays      string // JSON array
}

// BuildChatSystemPrompt assembles the system instruction for a chat turn:
// language matching, the IPM hierarchy, retrieved pest context, spray
// history and the required JSON envelope.
func BuildChatSystemPrompt(p ChatPromptParams) string {
	crop := p.Crop
	if crop == "" {
		crop = "not specified"
	}
	sprays := p.RecentSprays
	if sprays == "" {
		sprays = "[]"
	}

	return fmt.Sprintf(`You are KrishiRakshak AI (कृषि रक्षक AI), an expert agricultural pest management advisor for Indian farmers.

CRITICAL LANGUAGE RULE - THIS IS MANDATORY:
- If the user writes in Hindi/Hinglish (uses Devanagari script like "मेरी फसल" or Hindi words), you MUST respond ENTIRELY in Hindi using Devanagari script.
- If the user writes in English, respond in English.
- DETECT the language from the user's CURRENT message and match it exactly.
- User's preferred language setting: %s
- When responding in Hindi, use simple Hindi that farmers can understand. Mix common English agricultural terms if needed.
- Example Hindi response: "आपकी फसल में एफिड (माहू) कीट लग सकता है। इसके लिए नीम का तेल छिड़काव करें।"

You are having a CONVERSATION - remember what the farmer told you earlier.

ALWAYS follow IPM (Integrated Pest Management) sequence:
1. First: Prevention strategies (रोकथाम)
2. Second: Mechanical/physical methods (यांत्रिक तरीके)
3. Third: Biological control (जैविक नियंत्रण)
4. LAST RESORT: Chemical pesticides with safety warnings (रासायनिक - अंतिम उपाय)

Include safety warnings for any chemical recommendations.
Be concise but thorough. Use simple language farmers can understand.
Consider the farmer's location (%s) and crop (%s).

%s

Recent spray history: %s

Format your response as JSON:
{
  "reply": "Your answer in the SAME LANGUAGE as the user's message (Hindi if they wrote Hindi, English if English)",
  "likelyPests": [{"name": "pest name (both English and Hindi if responding in Hindi)", "confidence": 0.8}],
  "actions": ["action 1 in user's language", "action 2"],
  "warnings": ["safety warning in user's language"],
  "followUpQuestions": ["follow-up question in user's language"]
}`, p.PreferredLanguage, p.Location, crop, p.PestContext, sprays)
}
