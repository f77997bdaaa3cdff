package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/bubble/internal/cli"
	"horse.fit/bubble/internal/config"
	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/logging"
	"horse.fit/bubble/internal/ranking"
)

func runSlate(args []string) int {
	fs := flag.NewFlagSet("slate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	topics := fs.String("topics", "", "Comma-separated liked topics")
	serendipity := fs.Float64("serendipity", 0.5, "Serendipity slider in [0,1]")
	nationality := fs.String("nationality", "", "ISO country code used as the home region")
	poolLimit := fs.Int("pool", 200, "Maximum candidate pool size")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *poolLimit < 1 {
		fmt.Fprintln(os.Stderr, "--pool must be >= 1")
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

	items, err := store.ListRankableItems(ctx, *poolLimit)
	if err != nil {
		logger.Error().Err(err).Msg("list items failed")
		fmt.Fprintf(os.Stderr, "Failed to load items: %v\n", err)
		return 1
	}

	rankable := make([]ranking.RankableItem, 0, len(items))
	for _, item := range items {
		rankable = append(rankable, ranking.RankableItem{ID: item.ID, Tags: item.Tags, Status: item.Status})
	}

	plan := ranking.PlanSlate(rankable, preferencesFromFlags(*topics, *serendipity, *nationality))

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(plan); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode plan: %v\n", err)
		return 1
	}
	return 0
}

func preferencesFromFlags(topics string, serendipity float64, nationality string) ranking.Preferences {
	prefs := ranking.Preferences{
		Serendipity: serendipity,
		Nationality: strings.TrimSpace(nationality),
	}
	for _, topic := range strings.Split(topics, ",") {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			prefs.LikedTopics = append(prefs.LikedTopics, trimmed)
		}
	}
	return prefs
}
