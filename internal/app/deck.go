package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/bubble/internal/cli"
	"horse.fit/bubble/internal/config"
	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/logging"
	"horse.fit/bubble/internal/ranking"
)

func runDeck(args []string) int {
	fs := flag.NewFlagSet("deck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	userID := fs.String("user", "", "User ID for seen-item exclusion and view events")
	topics := fs.String("topics", "", "Comma-separated liked topics")
	serendipity := fs.Float64("serendipity", 0.5, "Serendipity slider in [0,1]")
	nationality := fs.String("nationality", "", "ISO country code used as the home region")
	limit := fs.Int("limit", ranking.DefaultDeckLimit, "Maximum number of cards")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 1")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := db.NewStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer store.Close()

	builder := ranking.NewDeckBuilder(store, logger)
	cards, err := builder.Build(ctx, *userID, preferencesFromFlags(*topics, *serendipity, *nationality), *limit)
	if err != nil {
		logger.Error().Err(err).Msg("deck build failed")
		fmt.Fprintf(os.Stderr, "Failed to build deck: %v\n", err)
		return 1
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cards); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode deck: %v\n", err)
		return 1
	}
	return 0
}
