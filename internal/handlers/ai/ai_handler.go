package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"avvai/internal"
	"avvai/internal/constants"
	"avvai/internal/handlers"
	"avvai/internal/llms"
	"avvai/internal/prompt"
)

// Completer is the part of the llm client the chat handler needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) llms.Result
}

// AIHandler - Handles the whole user -> verses -> grandma round trip.
type AIHandler struct {
	brain          *internal.Brain
	composer       *prompt.Composer
	llm            Completer
	maxQueryLength int
}

func NewHandler(brain *internal.Brain, composer *prompt.Composer, llm Completer, maxQueryLength int) *AIHandler {
	return &AIHandler{
		brain:          brain,
		composer:       composer,
		llm:            llm,
		maxQueryLength: maxQueryLength,
	}
}

// PostChat - POST /chat. Only an unparseable body gets a 400; everything else answers 200, failures
// included, with Paatti's reply in the response field.
func (handler *AIHandler) PostChat(c echo.Context) error {
	state := handler.brain.Ready()
	if state == nil {
		return c.JSON(http.StatusServiceUnavailable, handlers.ErrorResponse{Detail: constants.LoadingMessage})
	}

	var body handlers.ChatRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, handlers.ErrorResponse{Detail: "Invalid request body"})
	}
	query := body.Query // handed on verbatim, the retriever trims for embedding only
	if strings.TrimSpace(query) == "" {
		return c.JSON(http.StatusOK, handlers.ChatResponse{Response: constants.EmptyQueryReply})
	}
	if handler.maxQueryLength > 0 && utf8.RuneCountInString(query) > handler.maxQueryLength {
		return c.JSON(http.StatusOK, handlers.ChatResponse{
			Response: fmt.Sprintf(constants.LongQueryReply, handler.maxQueryLength),
		})
	}

	ctx := c.Request().Context()
	start := time.Now()

	verses, err := state.Retriever.Retrieve(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Retrieval failed")
		return c.JSON(http.StatusOK, apology(err))
	}

	text, err := handler.composer.Compose(verses, query)
	if err != nil {
		log.Error().Err(err).Msg("Prompt composition failed")
		return c.JSON(http.StatusOK, apology(err))
	}

	result := handler.llm.Complete(ctx, text)
	if result.Err != nil {
		return c.JSON(http.StatusOK, apology(result.Err))
	}

	log.Info().Int("verses", len(verses)).Dur("took", time.Since(start)).Msg("Chat answered")
	return c.JSON(http.StatusOK, handlers.ChatResponse{Response: result.Text})
}

// GetHealth - GET /health
func (handler *AIHandler) GetHealth(c echo.Context) error {
	state := handler.brain.Ready()
	if state == nil {
		return c.JSON(http.StatusOK, handlers.HealthResponse{Status: "loading"})
	}
	return c.JSON(http.StatusOK, handlers.HealthResponse{Status: "ready", Verses: len(state.Verses)})
}

func apology(err error) handlers.ChatResponse {
	detail := err.Error()
	var genErr *llms.GenerationError
	if errors.As(err, &genErr) {
		detail = genErr.Err.Error()
	}
	return handlers.ChatResponse{Response: fmt.Sprintf("%s (Error: %s)", constants.ApologyPrefix, detail)}
}
