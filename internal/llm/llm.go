package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kevinmichaelchen/star-vault/internal/models"
)

// readmeExcerptLimit caps how much README text goes into the prompt.
const readmeExcerptLimit = 4000

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const systemPrompt = `You are a technical analyst. Given a GitHub repository's name, description, topics, and README excerpt, produce a JSON object with:

1. "summary": A 2-3 sentence summary of what the repo does, its main use case, and why it's notable.
2. "categories": An array of 1-3 categories from this list:
   Developer Tool, Library/SDK, CLI, Web Framework, Database, Infrastructure, DevOps, Security, Data Pipeline, LLM Framework, AI Agent, ML Training, Observability, Documentation, Research, Other

Return ONLY valid JSON. No markdown, no code fences.`

// Summarize asks the model for a short summary of item. readme may be nil.
func (c *Client) Summarize(ctx context.Context, item models.StarredItem, readme *models.ReadmeResult) (*models.SummaryResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(item, readme)},
		},
		// No ResponseFormat: not all models support json_object mode.
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM call for %s: %w", item.FullName, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned for %s", item.FullName)
	}

	return parseSummary(item.FullName, resp.Choices[0].Message.Content)
}

func userMessage(item models.StarredItem, readme *models.ReadmeResult) string {
	parts := []string{fmt.Sprintf("Repository: %s", item.FullName)}
	if item.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", item.Description))
	}
	if len(item.Topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics: %s", strings.Join(item.Topics, ", ")))
	}
	if readme != nil && readme.Content != "" {
		parts = append(parts, fmt.Sprintf("README excerpt:\n%s", excerpt(readme.Content, readmeExcerptLimit)))
	}
	return strings.Join(parts, "\n\n")
}

func parseSummary(fullName, content string) (*models.SummaryResult, error) {
	content = stripCodeFences(content)

	var result models.SummaryResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("parsing LLM response for %s: %w\nraw: %s", fullName, err, content)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("empty summary for %s", fullName)
	}
	return &result, nil
}

// excerpt truncates s to at most limit bytes without splitting a rune.
func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// stripCodeFences removes markdown code fences that some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence (```json or ```)
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
