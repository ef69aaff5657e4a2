package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-github/v72/github"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"golang.org/x/oauth2"

	"github.com/cchalm/roomchat/internal/ai"
	"github.com/cchalm/roomchat/internal/bot"
	"github.com/cchalm/roomchat/internal/config"
	"github.com/cchalm/roomchat/internal/telemetry"
	"github.com/cchalm/roomchat/internal/transport"
)

const (
	defaultAnthropicModel = anthropic.ModelClaudeSonnet4_0
	defaultOpenAIModel    = "gpt-3.5-turbo"
)

// eventSource is a channel that produces inbound messages
type eventSource interface {
	Events(ctx context.Context) <-chan bot.Event
}

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		log.Println("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		log.Fatal("Forcing shutdown")
	}()

	return ctx
}

func createGithubClient(ctx context.Context, token string) *github.Client {
	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(ctx, tokenSource)
	return github.NewClient(httpClient)
}

func createCompleter(c config.Config) (ai.Completer, error) {
	rateLimitedHTTPClient := &http.Client{
		Transport: transport.WithRateLimiting(nil),
	}

	switch c.LLM.Provider {
	case config.ProviderAnthropic:
		model := anthropic.Model(c.LLM.Model)
		if model == "" {
			model = defaultAnthropicModel
		}
		client := anthropic.NewClient(
			anthropt.WithHTTPClient(rateLimitedHTTPClient),
			anthropt.WithAPIKey(c.Anthropic.APIKey),
			anthropt.WithMaxRetries(c.LLM.MaxRetries),
			anthropt.WithRequestTimeout(c.LLM.RequestTimeout),
		)
		log.Printf("Using Anthropic model %s", model)
		return ai.NewAnthropicCompleter(client, model, c.LLM.MaxOutputTokens), nil

	case config.ProviderOpenAI:
		model := c.LLM.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		opts := []openaiopt.RequestOption{
			openaiopt.WithHTTPClient(rateLimitedHTTPClient),
			openaiopt.WithAPIKey(c.OpenAI.APIKey),
			openaiopt.WithMaxRetries(c.LLM.MaxRetries),
			openaiopt.WithRequestTimeout(c.LLM.RequestTimeout),
		}
		if c.OpenAI.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(c.OpenAI.BaseURL))
		}
		log.Printf("Using OpenAI model %s", model)
		return ai.NewOpenAICompleter(openai.NewClient(opts...), model, c.LLM.MaxOutputTokens), nil
	}

	return nil, fmt.Errorf("%w: '%s'", ai.ErrUnknownProvider, c.LLM.Provider)
}

func createTelemetryProvider(ctx context.Context) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceVersion: version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig)
}

// serve wires a channel to the conversation engine and blocks until the channel closes or ctx is done
func serve(ctx context.Context, source eventSource, sink bot.Sink, botName string) error {
	completer, err := createCompleter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create completer: %w", err)
	}

	telemetryProvider, err := createTelemetryProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to create telemetry provider: %w", err)
	}
	defer func() {
		// The run context may already be canceled; flushing spans gets its own
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			log.Printf("failed to shut down telemetry: %v", err)
		}
	}()

	registry, err := bot.NewRegistry(telemetryProvider.TraceCompleter(completer), sink, cfg.Chat)
	if err != nil {
		return err
	}
	dispatcher := bot.NewDispatcher(registry, botName)

	log.Printf("History size: %d exchanges", cfg.Chat.HistorySize)
	err = dispatcher.Run(ctx, source.Events(ctx))
	log.Printf("Stopped after serving %d conversations", registry.Len())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
