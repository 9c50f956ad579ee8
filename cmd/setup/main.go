package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"avvai/internal"
	"avvai/internal/assets"
	"avvai/internal/config"
	"avvai/internal/corpus"
	"avvai/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common := []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "path to .env file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "optional YAML config file",
		},
	}

	app := &cli.Command{
		Name:  "avvai-setup",
		Usage: "prepare and check everything the server loads at startup",
		Commands: []*cli.Command{
			{
				Name:   "asset",
				Usage:  "download and repair the fine-tuned embedding model",
				Flags:  common,
				Action: assetAction,
			},
			{
				Name:   "corpus",
				Usage:  "validate the verse file",
				Flags:  common,
				Action: corpusAction,
			},
			{
				Name:  "index",
				Usage: "build the index exactly as the server does and run a test query",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "query",
						Usage: "question to retrieve verses for",
						Value: "I feel proud today",
					},
				}, common...),
				Action: indexAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Setup failed")
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env"), cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log)
	return cfg, nil
}

func assetAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	timeStart := time.Now()
	if err := assets.NewManager(cfg.Asset, nil).Ensure(ctx); err != nil {
		return err
	}
	fmt.Println("Model ready in", cfg.Asset.CacheDir, "after", time.Since(timeStart))
	return nil
}

func corpusAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	verses, path, err := corpus.Load(cfg.Corpus.Paths)
	if err != nil {
		return err
	}

	fallbacks := 0
	for _, v := range verses {
		if v.EmbeddingText == v.Explanation {
			fallbacks++
		}
	}
	fmt.Printf("%s: %d verses (%d embed the explanation)\n", path, len(verses), fallbacks)
	return nil
}

func indexAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	timeStart := time.Now()
	state, err := internal.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer state.Index.Close()
	fmt.Printf("Indexed %d verses in %s\n", state.Index.Len(), time.Since(timeStart))

	query := cmd.String("query")
	verses, err := state.Retriever.Retrieve(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("Top %d for %q:\n", len(verses), query)
	for i, v := range verses {
		fmt.Printf("%d. [%.4f] #%d %s - %s\n", i+1, v.Score, v.VerseNo, v.Text, v.Gloss)
	}
	return nil
}
