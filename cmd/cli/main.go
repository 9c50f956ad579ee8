package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"avvai/internal/handlers"
	"avvai/internal/utils"
)

const (
	slowReply   = 10 * time.Second
	typingDelay = 50 * time.Millisecond
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "avvai-cli",
		Usage: "talk to Paatti from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "chat endpoint",
				Value: "http://localhost:8000/chat",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "how long to wait for an answer",
				Value: 10 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "no-typing",
				Usage: "print answers at once",
			},
		},
		Action: chat,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("CLI stopped")
	}
}

func chat(ctx context.Context, cmd *cli.Command) error {
	client := &http.Client{Timeout: cmd.Duration("timeout")}
	url := cmd.String("url")
	delay := typingDelay
	if cmd.Bool("no-typing") {
		delay = 0
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("👵 Vanakkam Kanna! Tell Paatti what troubles you. (exit to leave)")
	for {
		fmt.Print("\nYou: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return nil // EOF
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("👵 Poittu vaa, Kanna ❤️")
			return nil
		}

		start := time.Now()
		reply, err := ask(ctx, client, url, input)
		took := time.Since(start)
		if err != nil {
			fmt.Println("Paatti: " + err.Error())
			continue
		}
		if took > slowReply {
			reply = fmt.Sprintf("(Paatti just woke up! That took %d seconds. Next time I'll be faster!)\n\n", int(took.Seconds())) + reply
		}
		fmt.Print("Paatti: ")
		typewrite(reply, delay)
		fmt.Printf("\n(%.1fs)\n", took.Seconds())
	}
}

func ask(ctx context.Context, client *http.Client, url, query string) (string, error) {
	payload, _ := json.Marshal(handlers.ChatRequest{Query: query})
	resp, err := utils.MakeHeadersRequest(ctx, http.MethodPost, url, bytes.NewReader(payload), client, utils.Header{
		Key:   "Content-Type",
		Value: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("🚨 Connection Issue: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("❌ Paatti is confused (Error %d)\n%s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var body handlers.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("Paatti is confused (%v)", err)
	}
	return body.Response, nil
}

// typewrite prints word by word. Runs of whitespace collapse to one space, newlines are kept.
func typewrite(text string, delay time.Duration) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			fmt.Println()
		}
		for _, word := range strings.Fields(line) {
			fmt.Print(word + " ")
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}
}
