package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ActionTypes is the vocabulary the suggester is asked to choose from.
var ActionTypes = []string{
	"fundraise", "fund_close", "acquisition", "exit", "ipo", "investment",
	"partnership", "personnel_change", "bankruptcy", "merger", "divestiture",
	"regulatory", "other",
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// SuggestActionTypes asks the model which action types a news article
// describes.
func (s *AIService) SuggestActionTypes(ctx context.Context, headline, text string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You tag private-markets news articles for analysts.

Allowed action types: %s

Headline: %s

Article:
%s

Return a JSON array with the action types from the allowed list that the article describes, most relevant first.
Return [] when none apply. Return only the JSON array.`, strings.Join(ActionTypes, ", "), headline, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseActionTypes(resp.Choices[0].Message.Content)
}

// parseActionTypes reads the model's JSON array, tolerating a fenced code
// block, and drops anything outside ActionTypes.
func parseActionTypes(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	allowed := make(map[string]struct{}, len(ActionTypes))
	for _, a := range ActionTypes {
		allowed[a] = struct{}{}
	}

	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if _, ok := allowed[tag]; ok {
			out = append(out, tag)
		}
	}
	return out, nil
}
