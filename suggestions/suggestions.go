package suggestions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"chat-layer/config"
	"chat-layer/models"
)

type GenerateResult struct {
	Suggestions []string `json:"suggestions"`
	IsFailure   bool     `json:"is_failure"`
}

const SYSTEM_INSTRUCTION = `
You are a follow-up question generator for an embedded website chat assistant. Your task is to read the recent conversation transcript and propose questions the site visitor is likely to ask next.
The response MUST be a valid JSON object with two keys:
1.  suggestions: An array of 3 short follow-up questions, each no more than 80 characters, phrased from the visitor's point of view.
2.  is_failure: A boolean value. Set to true if the transcript is empty or too ambiguous to derive meaningful follow-up questions. Otherwise, set to false.
You MUST NOT wrap the JSON output in a markdown code block (e.g., ` + "```json ... ```" + `). The response should contain ONLY the raw JSON string.
If generation fails, set is_failure to true and provide an empty array for suggestions.
All suggestions MUST be written in the same language the visitor used in the transcript.
`

// GenerateFromMessages proposes follow-up questions from the tail of a
// conversation. messages must be in creation order; only the configured
// context window is sent to the model.
func GenerateFromMessages(ctx context.Context, messages []models.ChatMessage) (*GenerateResult, error) {
	window := config.GetConfig().Suggestions.ContextWindow
	if window <= 0 {
		window = 5
	}
	if len(messages) > window {
		messages = messages[len(messages)-window:]
	}

	transcript := buildTranscript(messages)
	if transcript == "" {
		return &GenerateResult{IsFailure: true}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.GeminiAPIKey(),
	})
	if err != nil {
		return nil, err
	}

	result, err := client.Models.GenerateContent(
		ctx,
		config.GetConfig().Suggestions.GeminiModel,
		genai.Text(transcript),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SYSTEM_INSTRUCTION}}},
		},
	)
	if err != nil {
		return nil, err
	}

	var out GenerateResult
	if err := json.Unmarshal([]byte(result.Text()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// buildTranscript renders messages as "role: content" lines. Empty contents
// are skipped so tool-only turns do not confuse the model.
func buildTranscript(messages []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, text)
	}
	return strings.TrimSpace(b.String())
}
