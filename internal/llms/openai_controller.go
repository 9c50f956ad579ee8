package llms

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"avvai/internal/constants"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAILLM talks to any OpenAI-compatible chat endpoint through langchaingo.
type OpenAILLM struct {
	Model   string
	clients map[string]llms.Model
}

func NewOpenAIGenerator(baseURL, model string, pool *Pool) (*OpenAILLM, error) {
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	if model == "" {
		return nil, fmt.Errorf("openai provider needs LLM_MODEL")
	}

	clients := make(map[string]llms.Model, pool.Len())
	for _, cred := range pool.Credentials() {
		client, err := openai.New(
			openai.WithToken(cred.Key),
			openai.WithBaseURL(baseURL),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("openai client for %s: %w", cred.Slot, err)
		}
		clients[cred.Slot] = client
	}
	return &OpenAILLM{Model: model, clients: clients}, nil
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string, cred Credential) (string, error) {
	client, ok := o.clients[cred.Slot]
	if !ok {
		return "", fmt.Errorf("no openai client for %s", cred.Slot)
	}

	resp, err := client.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(float64(constants.Temperature)),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) < 1 {
		return "", fmt.Errorf("no choices found")
	}
	return resp.Choices[0].Content, nil
}
