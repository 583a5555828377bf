package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"codescout/internal/client"
	"codescout/internal/domain/models/chat"
)

func main() {
	_ = godotenv.Load()

	var (
		serverURL      = flag.String("server", envOr("CODESCOUT_SERVER", "http://localhost:8080"), "server base URL")
		token          = flag.String("token", os.Getenv("CODESCOUT_TOKEN"), "bearer token")
		repoID         = flag.String("repo", "", "repository id to explore")
		conversationID = flag.String("conversation", "", "resume an existing conversation")
		idleTimeout    = flag.Duration("idle-timeout", 0, "abort a run when no event arrives for this long (0 = no limit)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	api := client.NewAPIClient(*serverURL, *token, &http.Client{})
	store := client.NewStore(api, logger)
	defer store.Close()
	runner := client.NewRunner(store, api, logger)
	runner.IdleTimeout = *idleTimeout

	convID := *conversationID
	if convID != "" {
		if err := reload(api, store, convID); err != nil {
			fmt.Fprintf(os.Stderr, "cannot resume conversation: %v\n", err)
			os.Exit(1)
		}
		printTranscript(store, convID)
	} else if *repoID == "" {
		fmt.Fprintln(os.Stderr, "either -repo or -conversation is required")
		os.Exit(1)
	}

	// Ctrl+C stops the active run; the prompt stays usable afterwards.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range signals {
			runner.Stop()
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if prompt == "/quit" || prompt == "/exit" {
			return
		}

		id, err := runner.Submit(context.Background(), convID, *repoID, prompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
			continue
		}
		convID = id

		printLastTurn(store, convID)
	}
}

// reload seeds the store from the server so history survives restarts.
func reload(api *client.APIClient, store *client.Store, conversationID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conv, err := api.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	turns, err := api.ListTurns(ctx, conversationID)
	if err != nil {
		return err
	}
	store.Load(*conv, turns)
	return nil
}

func printTranscript(store *client.Store, conversationID string) {
	conv, ok := store.Conversation(conversationID)
	if !ok {
		return
	}
	fmt.Printf("== %s ==\n", conv.Title)
	for _, turn := range conv.Turns {
		printTurn(turn)
	}
}

func printLastTurn(store *client.Store, conversationID string) {
	conv, ok := store.Conversation(conversationID)
	if !ok || len(conv.Turns) == 0 {
		return
	}
	printTurn(conv.Turns[len(conv.Turns)-1])
}

func printTurn(turn chat.Turn) {
	switch turn.Role {
	case chat.RoleUser:
		fmt.Printf("you: %s\n", turn.Text)
	case chat.RoleAssistant:
		fmt.Printf("assistant: %s\n", turn.Text)
		for _, call := range turn.ToolCalls {
			fmt.Printf("  [tool] %s\n", call.Tool)
		}
		if turn.Stats != nil {
			fmt.Printf("  (%d tools, %d tokens, %dms)\n",
				turn.Stats.ToolUses, turn.Stats.Tokens, turn.Stats.DurationMs)
		}
		if turn.Status == chat.StatusCancelled {
			fmt.Println("  (cancelled)")
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
