package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// CategoryClient asks Gemini which catalog category a free-text need
// belongs to.
type CategoryClient struct {
	client *genai.Client
	model  string
}

func NewCategoryClient(ctx context.Context, apiKey, model string) (*CategoryClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &CategoryClient{client: client, model: model}, nil
}

// Suggest returns the catalog value for need.
func (c *CategoryClient) Suggest(ctx context.Context, need string) (string, error) {
	need = strings.TrimSpace(need)
	if need == "" {
		return "", fmt.Errorf("%w: empty need", ErrParseFailed)
	}
	start := time.Now()
	parts := []*genai.Part{
		genai.NewPartFromText(BuildCategoryPrompt()),
		genai.NewPartFromText("Requirement: " + need),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	log.Printf("[category] stage=gemini_start model=%s", c.model)
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Printf("[category] stage=gemini_fail model=%s err=%v", c.model, err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	raw := res.Text()
	value, err := ParseCategory(raw)
	if err != nil {
		text := strings.ReplaceAll(raw, "\n", " ")
		if len(text) > 80 {
			text = text[:80]
		}
		log.Printf("[category] stage=parse_fail text=%q err=%v", text, err)
		return "", err
	}
	log.Printf("[category] stage=parse_ok value=%s totalMs=%d", value, time.Since(start).Milliseconds())
	return value, nil
}
