package ai

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// systemInstruction steers the model toward the structured reply shape
// clients understand. Plain-text answers remain valid.
const systemInstruction = `You are a coding assistant embedded in a shared project chat.
Answer concisely. When asked to create or modify project files, respond with
a single JSON object of the form {"text": "<summary>", "fileTree": {"<path>": "<content>"}}.
For everything else, reply with plain text.`

// GeminiCompleter implements Completer using the Google GenAI SDK.
type GeminiCompleter struct {
	model  string
	client *genai.Client
}

// NewGeminiCompleter creates a Gemini-backed completer for the given model.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiCompleter{model: model, client: client}, nil
}

// Complete sends one prompt to the provider and parses the response.
// Cancellation and deadline handling come from ctx; the caller bounds the
// call with a timeout.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (*Result, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyCompletion
	}

	return Parse(collectText(resp.Candidates[0].Content))
}

func collectText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
