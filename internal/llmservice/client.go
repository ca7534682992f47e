// Package llmservice adapts the external language model for grounded
// answer generation.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docusage/internal/config"
	"docusage/internal/models"
)

// temperature keeps generation deterministic-leaning.
const temperature = 0.3

// contextWindow bounds the model's context length where the backend
// supports it (Ollama num_ctx).
const contextWindow = 4096

// Client generates answers from a question and a grounding context string.
type Client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

// Generate asks the model to answer the question using only the supplied
// context, in exactly one sentence. The framing lives in the request; the
// model's output is returned untouched. Call failures are converted into a
// degraded answer string, never propagated.
func (c *Client) Generate(ctx context.Context, question, contextText string) string {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.SystemPromptTemplate}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: fmt.Sprintf(models.UserPromptTemplate, contextText, question)}},
		},
	}

	res, err := c.generateContent(ctx, messages)
	if err != nil {
		log.Error().Err(err).Msg("Error generating answer")
		return fmt.Sprintf("The answer could not be generated: %v", err)
	}
	if len(res.Choices) == 0 || res.Choices[0].Content == "" {
		log.Warn().Msg("Language model returned no content")
		return "No response from the language model."
	}
	return res.Choices[0].Content
}

func (c *Client) generateContent(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	llm, err := c.newLLM()
	if err != nil {
		return nil, err
	}
	return llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
}

func (c *Client) newLLM() (llms.Model, error) {
	switch c.cfg.Provider {
	case config.ProviderOllama:
		return ollama.New(
			ollama.WithServerURL(c.cfg.BaseURL),
			ollama.WithModel(c.cfg.Model),
			ollama.WithRunnerNumCtx(contextWindow),
		)
	case config.ProviderOpenAI:
		return openai.New(
			openai.WithBaseURL(c.cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
			openai.WithModel(c.cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", c.cfg.Provider)
	}
}
