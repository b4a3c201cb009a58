// Package cmd contains the gembot command-line interface. main.go stays a
// minimal entry point; all wiring lives here.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zrlgs/gembot/internal/config"
	"github.com/zrlgs/gembot/internal/gemini"
	"github.com/zrlgs/gembot/internal/log"
	"github.com/zrlgs/gembot/internal/registry"
	"github.com/zrlgs/gembot/internal/session"
	"github.com/zrlgs/gembot/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "gembot",
	Short: "Telegram bot backed by Gemini models",
	Long: `gembot bridges Telegram chats to the Gemini API.

Each user gets an independent conversation with model switching, image
analysis, and MarkdownV2-formatted replies. Running gembot with no
arguments starts the bot.`,
	RunE:          runBot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("configuration loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := buildBot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	err = bot.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// buildBot assembles the dependency graph: Gemini client, model registry,
// session store, and the Telegram front end (which owns the relay).
func buildBot(ctx context.Context, cfg *config.Config, logger log.Logger) (*telegram.Bot, error) {
	client, err := gemini.New(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini client: %w", err)
	}

	reg := registry.New(client, cfg.FallbackModels, cfg.ModelCacheTTL,
		logger.With("component", "registry"))
	store := session.NewStore(client)

	bot, err := telegram.New(cfg.TelegramToken, client, store, reg, telegram.Options{
		DefaultModel:   cfg.DefaultModel,
		ChunkLimit:     cfg.ChunkLimit,
		TypingInterval: cfg.TypingInterval,
	}, logger.With("component", "telegram"))
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return bot, nil
}
