// Package httpapi is the read-only operational surface over the ingested
// corpus: health, sources, items, slate plans and assembled decks.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/ranking"
)

const (
	rankablePoolLimit    = 200
	defaultItemsPageSize = 50
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	store  db.Store
	deck   *ranking.DeckBuilder
	logger zerolog.Logger
	opts   Options
}

func NewServer(store db.Store, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		store:  store,
		deck:   ranking.NewDeckBuilder(store, logger),
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("bubble api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("bubble api stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/sources", s.handleSources)
	api.GET("/items", s.handleItems)
	api.GET("/items/:id", s.handleItem)
	api.GET("/slate", s.handleSlate)
	api.GET("/deck", s.handleDeck)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if text, ok := he.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return internalError(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service": "bubble",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleSources(c echo.Context) error {
	sources, err := s.store.ListSources(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list sources failed")
		return internalError(c, "Failed to load sources")
	}
	return success(c, map[string]any{"sources": sources})
}

func (s *Server) handleItems(c echo.Context) error {
	limit := defaultItemsPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return fail(c, http.StatusBadRequest, "limit must be a positive integer", nil)
		}
		limit = parsed
		if limit > rankablePoolLimit {
			limit = rankablePoolLimit
		}
	}

	items, err := s.store.ListRankableItems(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list items failed")
		return internalError(c, "Failed to load items")
	}
	return success(c, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleItem(c echo.Context) error {
	id := c.Param("id")
	item, err := s.store.FindItemByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return failNotFound(c, "Item not found")
		}
		s.logger.Error().Err(err).Str("item", id).Msg("load item failed")
		return internalError(c, "Failed to load item")
	}
	return success(c, map[string]any{"item": item})
}

// handleSlate exposes the raw ranking output for a preference vector given in
// query parameters.
func (s *Server) handleSlate(c echo.Context) error {
	prefs := preferencesFromQuery(c)

	items, err := s.store.ListRankableItems(c.Request().Context(), rankablePoolLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list rankable items failed")
		return internalError(c, "Failed to load candidates")
	}

	rankable := make([]ranking.RankableItem, 0, len(items))
	for _, item := range items {
		rankable = append(rankable, ranking.RankableItem{ID: item.ID, Tags: item.Tags, Status: item.Status})
	}

	plan := ranking.PlanSlate(rankable, prefs)
	return success(c, plan)
}

func (s *Server) handleDeck(c echo.Context) error {
	prefs := preferencesFromQuery(c)
	userID := strings.TrimSpace(c.QueryParam("user"))

	limit := ranking.DefaultDeckLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return fail(c, http.StatusBadRequest, "limit must be a positive integer", nil)
		}
		limit = parsed
	}

	cards, err := s.deck.Build(c.Request().Context(), userID, prefs, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("deck build failed")
		return internalError(c, "Failed to build deck")
	}
	return success(c, map[string]any{"cards": cards})
}

func preferencesFromQuery(c echo.Context) ranking.Preferences {
	prefs := ranking.Preferences{
		Serendipity: 0.5,
		Nationality: strings.TrimSpace(c.QueryParam("nationality")),
	}
	if raw := c.QueryParam("topics"); raw != "" {
		for _, topic := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(topic); trimmed != "" {
				prefs.LikedTopics = append(prefs.LikedTopics, trimmed)
			}
		}
	}
	if raw := c.QueryParam("serendipity"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			prefs.Serendipity = parsed
		}
	}
	return prefs
}
