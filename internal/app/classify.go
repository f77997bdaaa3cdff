package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/bubble/internal/classifier"
	"horse.fit/bubble/internal/cli"
	"horse.fit/bubble/internal/config"
	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/logging"
)

func runClassify(args []string) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	limit := fs.Int("limit", 200, "Maximum number of items to re-score")

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

	items, err := store.ListRankableItems(ctx, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("list items failed")
		fmt.Fprintf(os.Stderr, "Failed to load items: %v\n", err)
		return 1
	}

	clf := classifier.New(cfg.QualityModelURL, nil, logger)

	scored := 0
	for i := range items {
		item := &items[i]
		score, fromModel := clf.Score(ctx, classifier.Input{
			Title:    item.Title,
			Summary:  derefOr(item.ContextSummary, ""),
			Text:     item.Text,
			Tags:     item.Tags,
			Language: derefOr(item.Lang, ""),
		})

		item.QualityScore = &score.Score
		item.QualityVerdict = &score.Verdict
		item.QualityReasons = score.Reasons
		if err := store.UpdateItem(ctx, item); err != nil {
			logger.Error().Err(err).Str("item", item.ID).Msg("store quality failed")
			fmt.Fprintf(os.Stderr, "Failed to store quality for %s: %v\n", item.ID, err)
			return 1
		}

		logger.Info().
			Str("item", item.ID).
			Str("quality", score.String()).
			Bool("model", fromModel).
			Msg("re-scored article")
		scored++
	}

	fmt.Printf("re-scored %d item(s)\n", scored)
	return 0
}
