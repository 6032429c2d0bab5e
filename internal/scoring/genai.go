package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const systemPrompt = "You are a content quality analyzer. Evaluate content " +
	"descriptions for duplicate/spam likelihood and return scores between " +
	"0.0 (clean) and 1.0 (problematic)."

const promptTemplate = `Analyze the following content description for potential issues:

Description: %q

Evaluate:
1. Duplicate/repetitive content likelihood (0.0-1.0)
2. Spam/low-quality content likelihood (0.0-1.0)

Consider generic or template-like descriptions, excessive promotional
language, lack of specific details, and common spam patterns.

Respond with JSON in this format:
{"duplicate_score": number, "spam_score": number}`

// GenAIOracle scores descriptions using Google's Gemini API.
type GenAIOracle struct {
	client *genai.Client
	model  string
}

// NewGenAIOracle creates a Gemini-backed oracle.
func NewGenAIOracle(ctx context.Context, apiKey, model string) (*GenAIOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIOracle{client: client, model: model}, nil
}

// Analyze asks the model for duplicate/spam scores on the description.
func (o *GenAIOracle) Analyze(ctx context.Context, description string) (Scores, error) {
	prompt := fmt.Sprintf(promptTemplate, description)

	resp, err := o.client.Models.GenerateContent(ctx,
		o.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return Scores{}, fmt.Errorf("genai analyze failed: %w", err)
	}

	return ParseVerdict([]byte(resp.Text()))
}

// ParseVerdict decodes the oracle's JSON response and clamps the scores.
func ParseVerdict(data []byte) (Scores, error) {
	var verdict struct {
		DuplicateScore float64 `json:"duplicate_score"`
		SpamScore      float64 `json:"spam_score"`
	}
	if err := json.Unmarshal(data, &verdict); err != nil {
		return Scores{}, fmt.Errorf("failed to decode oracle verdict: %w", err)
	}
	return Scores{Duplicate: verdict.DuplicateScore, Spam: verdict.SpamScore}.Clamped(), nil
}
