package llms

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"avvai/internal/config"
)

const (
	GeminiProvider Provider = "gemini"
	OpenAIProvider Provider = "openai" // any OpenAI-compatible endpoint, e.g. Groq
)

type Provider string

var ErrNoCredentials = errors.New("no llm api keys configured")

// Credential - One API key and the env slot it came from. Only the slot is ever logged.
type Credential struct {
	Slot string
	Key  string
}

// Pool is the fixed set of credentials found at startup.
type Pool struct {
	creds []Credential
}

func NewPool(keys []config.APIKey) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	creds := make([]Credential, len(keys))
	for i, k := range keys {
		creds[i] = Credential{Slot: k.Slot, Key: k.Value}
	}
	return &Pool{creds: creds}, nil
}

func (p *Pool) Len() int { return len(p.creds) }

func (p *Pool) Credentials() []Credential {
	return append([]Credential(nil), p.creds...)
}

type Selector interface {
	Next() Credential
}

// RandomSelector picks uniformly and independently on every call. There is no rotation state.
type RandomSelector struct {
	pool *Pool
	intn func(int) int
}

func NewRandomSelector(pool *Pool) *RandomSelector {
	return &RandomSelector{pool: pool, intn: rand.IntN}
}

// NewRandomSelectorWithSource lets tests fix the draw.
func NewRandomSelectorWithSource(pool *Pool, intn func(int) int) *RandomSelector {
	return &RandomSelector{pool: pool, intn: intn}
}

func (s *RandomSelector) Next() Credential {
	return s.pool.creds[s.intn(len(s.pool.creds))]
}

// Generator sends one prompt to a hosted chat model with the given key.
type Generator interface {
	Generate(ctx context.Context, prompt string, cred Credential) (string, error)
}

// GenerationError - the model call failed. Slot says which key was used.
type GenerationError struct {
	Slot string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Slot, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result - either Text or Err is set
type Result struct {
	Text string
	Err  error
}

// Client ties a selector to a generator. One attempt per call, no retries.
type Client struct {
	selector  Selector
	generator Generator
}

func NewClient(selector Selector, generator Generator) *Client {
	return &Client{selector: selector, generator: generator}
}

func (c *Client) Complete(ctx context.Context, prompt string) Result {
	cred := c.selector.Next()
	start := time.Now()
	text, err := c.generator.Generate(ctx, prompt, cred)
	if err != nil {
		log.Warn().Err(err).Str("slot", cred.Slot).Dur("took", time.Since(start)).Msg("Generation failed")
		return Result{Err: &GenerationError{Slot: cred.Slot, Err: err}}
	}
	log.Debug().Str("slot", cred.Slot).Dur("took", time.Since(start)).Msg("Generation done")
	return Result{Text: text}
}

// New builds the client for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	pool, err := NewPool(cfg.Keys)
	if err != nil {
		return nil, err
	}

	var generator Generator
	switch Provider(cfg.Provider) {
	case GeminiProvider, "":
		generator, err = NewGeminiGenerator(ctx, cfg.Model, pool)
	case OpenAIProvider:
		generator, err = NewOpenAIGenerator(cfg.BaseURL, cfg.Model, pool)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Int("keys", pool.Len()).Msg("LLM client ready")
	return NewClient(NewRandomSelector(pool), generator), nil
}
