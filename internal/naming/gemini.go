package naming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiProvider suggests names via the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini-backed naming provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

// SuggestName asks the model for a fresh name given the used list.
func (p *GeminiProvider) SuggestName(ctx context.Context, usedNames []string) (string, error) {
	userMessage := "Already used names: " + strings.Join(usedNames, ", ")
	if len(usedNames) == 0 {
		userMessage = "No names are used yet."
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: namePrompt + "\n\n" + userMessage},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}

	var parsed nameResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse name JSON: %w", err)
	}
	return parsed.Name, nil
}
