package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/classifier"
	"horse.fit/bubble/internal/cli"
	"horse.fit/bubble/internal/communitymodel"
	"horse.fit/bubble/internal/config"
	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/feeds"
	"horse.fit/bubble/internal/ingest"
	"horse.fit/bubble/internal/logging"
	"horse.fit/bubble/internal/scrape"
	"horse.fit/bubble/internal/translation"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	sourcesJSON := fs.String("sources", "", "Source list JSON (overrides INGEST_SOURCES_JSON)")
	sourceID := fs.String("source", "", "Ingest a single registered source by ID")

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

	svc := buildIngestService(store, cfg, logger)

	if id := strings.TrimSpace(*sourceID); id != "" {
		result, err := svc.IngestSource(ctx, id)
		if err != nil {
			logger.Error().Err(err).Str("source", id).Msg("ingest failed")
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			return 1
		}
		if err := svc.ClassifyItems(ctx, result.ItemIDs); err != nil {
			logger.Error().Err(err).Str("source", id).Msg("classification failed")
			fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
			return 1
		}
		fmt.Printf("created=%d updated=%d skipped=%d\n", result.Created, result.Updated, result.Skipped)
		return 0
	}

	raw := *sourcesJSON
	if raw == "" {
		raw = cfg.IngestSources
	}
	configs := ingest.ParseSourcesFromEnv(raw, logger)

	if err := svc.RunBatch(ctx, configs); err != nil {
		logger.Error().Err(err).Msg("ingest batch failed")
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("ingested %d source(s)\n", len(configs))
	return 0
}

// buildIngestService wires the scraper, translator, feed adapters, and
// quality classifier from configuration.
func buildIngestService(store db.Store, cfg *config.Config, logger zerolog.Logger) *ingest.Service {
	httpClient := &http.Client{Timeout: scrape.DefaultFetchTimeout}

	generator := communitymodel.NewClient(cfg.OllamaBaseURL, cfg.OllamaModelList(), logger)
	translator := translation.NewTranslator(generator, cfg.TranslateEnabled, cfg.TranslateMaxTotal, cfg.TranslateChunkSize, logger)
	scraper := scrape.NewScraper(httpClient, cfg.IngestUserAgent, translator, logger)

	adapters := map[string]ingest.Adapter{
		"rss":   feeds.NewRSSAdapter(httpClient, cfg.IngestUserAgent, scraper, logger),
		"arxiv": feeds.NewArxivAdapter(httpClient, cfg.IngestUserAgent, scraper, logger),
	}

	clf := classifier.New(cfg.QualityModelURL, nil, logger)

	return ingest.NewService(store, adapters, clf, cfg.NoveltyWindow, logger)
}
