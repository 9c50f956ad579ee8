package llms

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"avvai/internal/constants"
)

// GeminiLLM holds one genai client per key slot, built once at startup.
type GeminiLLM struct {
	Model   string
	clients map[string]*genai.Client
	Parser  *GeminiParser
}

func NewGeminiGenerator(ctx context.Context, model string, pool *Pool) (*GeminiLLM, error) {
	if model == "" {
		model = constants.ChatModel
	}
	clients := make(map[string]*genai.Client, pool.Len())
	for _, cred := range pool.Credentials() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cred.Key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client for %s: %w", cred.Slot, err)
		}
		clients[cred.Slot] = client
	}

	return &GeminiLLM{
		Model:   model,
		clients: clients,
		Parser:  &GeminiParser{},
	}, nil
}

// Generate - Send the prompt to Gemini. Does NOT support streaming.
func (gemini *GeminiLLM) Generate(ctx context.Context, prompt string, cred Credential) (string, error) {
	client, ok := gemini.clients[cred.Slot]
	if !ok {
		return "", fmt.Errorf("no gemini client for %s", cred.Slot)
	}

	resp, err := gemini.Parser.ParseResponse(client.Models.GenerateContent(ctx, gemini.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(constants.Temperature),
	}))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
