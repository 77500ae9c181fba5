package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Hinter proposes a likely entity id for an unresolved free-text value. The
// proposal is advisory text shown inside the operator prompt; it never
// answers the prompt and never writes to the disambiguation cache.
type Hinter struct {
	client *openai.Client
	model  string
}

// NewHinter creates a hinter. An empty apiKey means hinting is unconfigured
// and the constructor returns an error; callers treat that as "no hinter".
func NewHinter(apiKey, baseURL, model string) (*Hinter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("hint provider needs an API key")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Hinter{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Hint returns a short suggestion for resolving text within a category, or
// "" when the model has nothing useful. Failures are silent; a hint is never
// worth interrupting the operator for.
func (h *Hinter) Hint(category, text string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"An operator maps catalog text to Wikidata items. Category: %q. Text: %q. "+
			"Answer with the most likely Q-id and a three-word justification, or NONE.",
		category, text)

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: h.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You suggest Wikidata item ids for short catalog phrases. Be terse.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   40,
		Temperature: 0,
	})
	if err != nil || len(resp.Choices) == 0 {
		return ""
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return ""
	}
	return answer
}
