package app

import (
	"context"
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
)

func runSources(args []string) int {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	addURL := fs.String("add", "", "Register a feed source by URL")
	sourceType := fs.String("type", "rss", "Source type for --add (rss or arxiv)")
	title := fs.String("title", "", "Source title for --add")
	country := fs.String("country", "", "ISO country code for --add")
	language := fs.String("lang", "", "Primary language for --add")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	if url := strings.TrimSpace(*addURL); url != "" {
		if strings.TrimSpace(*title) == "" {
			fmt.Fprintln(os.Stderr, "--title is required with --add")
			return 2
		}
		source, err := store.EnsureSource(ctx, url, *sourceType, *title, *country, *language)
		if err != nil {
			logger.Error().Err(err).Str("url", url).Msg("register source failed")
			fmt.Fprintf(os.Stderr, "Failed to register source: %v\n", err)
			return 1
		}
		fmt.Printf("registered %s (%s)\n", source.ID, source.URL)
		return 0
	}

	sources, err := store.ListSources(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list sources failed")
		fmt.Fprintf(os.Stderr, "Failed to list sources: %v\n", err)
		return 1
	}

	if len(sources) == 0 {
		fmt.Println("no sources registered")
		return 0
	}

	for _, source := range sources {
		fmt.Printf("%s  %-6s %-28s %s\n", source.ID, source.Type, derefOr(source.Title, "-"), source.URL)
	}
	fmt.Printf("%d source(s)\n", len(sources))
	return 0
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
