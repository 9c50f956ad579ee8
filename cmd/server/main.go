package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"avvai/internal"
	"avvai/internal/config"
	handlers "avvai/internal/handlers/ai"
	"avvai/internal/llms"
	"avvai/internal/logging"
	"avvai/internal/prompt"
	"avvai/internal/routing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "avvai-server",
		Usage: "Avvaiyar Paatti chat backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to .env file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "optional YAML config file",
			},
		},
		Action: serve,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"), cmd.String("config"))
	if err != nil {
		return err
	}
	logging.Setup(cfg.Log)

	composer, err := prompt.NewComposerFromFile(cfg.LLM.PromptFile)
	if err != nil {
		return err
	}
	llmClient, err := llms.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	brain := internal.NewBrain()
	defer brain.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	routing.InitRoutes(e, handlers.NewHandler(brain, composer, llmClient, cfg.Server.MaxQueryLength))

	// the listener is up before the brain, /chat answers 503 meanwhile
	go func() {
		state, err := internal.Bootstrap(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Fatal().Err(err).Msg("Startup failed")
		}
		brain.Publish(state)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
