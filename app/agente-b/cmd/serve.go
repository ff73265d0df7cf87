package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/agenteb/agente-b/internal/assistant"
	"github.com/agenteb/agente-b/internal/config"
	"github.com/agenteb/agente-b/internal/conversation"
	"github.com/agenteb/agente-b/internal/messages"
	"github.com/agenteb/agente-b/internal/server"
	"github.com/agenteb/agente-b/internal/speech"
	"github.com/agenteb/agente-b/internal/telemetry"
	"github.com/agenteb/agente-b/internal/transport"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs, err := messages.ForLocale(cfg.Locale)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TelemetryEnabled,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	// Without an API key the process still starts: the static page and text
	// extraction keep working, AI paths degrade to fixed replies
	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
		clientConfig.HTTPClient = &http.Client{Transport: transport.WithRateLimitRetries(nil)}
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		log.Println("OPENAI_API_KEY not set: AI endpoints will serve degraded replies")
	}

	store := conversation.NewStore()

	var completer assistant.CompletionClient
	var speechClient speech.Client
	if client != nil {
		completer = client
		speechClient = client
	}
	asst := assistant.New(completer, store, msgs, cfg)
	speechSvc := speech.NewService(speechClient, cfg.TTSModel, cfg.TTSVoice, msgs.TTSInstructions, cfg.STTModel)

	srv := server.New(store, asst, speechSvc, msgs, cfg)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (locale=%s, model=%s)", httpServer.Addr, cfg.Locale, cfg.ChatModel)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
