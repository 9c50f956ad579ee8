package llms

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiParser struct{}

// GeminiCompleteAIResponse - Content from the gemini response, flattened for convenience
type GeminiCompleteAIResponse struct {
	Content      string
	FinishReason genai.FinishReason
}

// ParseResponse - Parse an unstreamed response from Gemini. Text parts of the first candidate are joined.
func (GeminiParser) ParseResponse(resp *genai.GenerateContentResponse, err error) (*GeminiCompleteAIResponse, error) {
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Candidates) < 1 {
		return nil, fmt.Errorf("no candidates found")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) < 1 {
		return nil, fmt.Errorf("no content found (finish reason %s)", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return &GeminiCompleteAIResponse{
		Content:      sb.String(),
		FinishReason: candidate.FinishReason,
	}, nil
}
