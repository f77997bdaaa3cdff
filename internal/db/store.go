package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/bubble/internal/config"
)

// ErrNotFound marks expected absence of a record.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator the ingestion and ranking cores
// depend on. The gorm implementation lives below; tests substitute fakes.
type Store interface {
	Ping(ctx context.Context) error

	FindSourceByID(ctx context.Context, id string) (*Source, error)
	EnsureSource(ctx context.Context, url, sourceType, title, countryCode, primaryLanguage string) (*Source, error)
	ListSources(ctx context.Context) ([]Source, error)

	FindItemByID(ctx context.Context, id string) (*Item, error)
	FindItemByURLOrHash(ctx context.Context, url, hash string) (*Item, error)
	CreateItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	FindRecentTexts(ctx context.Context, limit int) ([]string, error)
	ListRankableItems(ctx context.Context, limit int) ([]Item, error)

	ListRecentlySeenItemIDs(ctx context.Context, userID string, since time.Time) (map[string]struct{}, error)
	RecordSeen(ctx context.Context, userID, itemID, name string) error
}

// GormStore is the Postgres-backed Store.
type GormStore struct {
	gdb *gorm.DB
}

// NewStore opens the database from config and verifies connectivity.
func NewStore(ctx context.Context, cfg *config.Config) (*GormStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(int(cfg.DBMinConns))
	sqlDB.SetMaxOpenConns(int(cfg.DBMaxConns))
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &GormStore{gdb: gdb}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	if s == nil || s.gdb == nil {
		return nil
	}
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Ping(ctx context.Context) error {
	if s == nil || s.gdb == nil {
		return fmt.Errorf("store is not initialized")
	}
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) FindSourceByID(ctx context.Context, id string) (*Source, error) {
	var source Source
	err := s.gdb.WithContext(ctx).First(&source, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find source %s: %w", id, err)
	}
	return &source, nil
}

func (s *GormStore) EnsureSource(ctx context.Context, url, sourceType, title, countryCode, primaryLanguage string) (*Source, error) {
	var existing Source
	err := s.gdb.WithContext(ctx).First(&existing, "url = ?", url).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find source by url: %w", err)
	}

	source := Source{
		URL:  url,
		Type: sourceType,
	}
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		source.Title = &trimmed
	}
	if trimmed := strings.TrimSpace(countryCode); trimmed != "" {
		source.CountryCode = &trimmed
	}
	if trimmed := strings.TrimSpace(primaryLanguage); trimmed != "" {
		source.PrimaryLanguage = &trimmed
	}
	if err := s.gdb.WithContext(ctx).Create(&source).Error; err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return &source, nil
}

func (s *GormStore) ListSources(ctx context.Context) ([]Source, error) {
	var sources []Source
	if err := s.gdb.WithContext(ctx).Order("created_at asc").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

func (s *GormStore) FindItemByID(ctx context.Context, id string) (*Item, error) {
	var item Item
	err := s.gdb.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find item %s: %w", id, err)
	}
	return &item, nil
}

// FindItemByURLOrHash returns (nil, nil) when no item matches: absence is an
// expected outcome here, not an error.
func (s *GormStore) FindItemByURLOrHash(ctx context.Context, url, hash string) (*Item, error) {
	var item Item
	err := s.gdb.WithContext(ctx).Where("url = ? OR hash = ?", url, hash).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item by url or hash: %w", err)
	}
	return &item, nil
}

func (s *GormStore) CreateItem(ctx context.Context, item *Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	if err := s.gdb.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateItem(ctx context.Context, item *Item) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("item id is required for update")
	}
	if err := s.gdb.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	return nil
}

func (s *GormStore) FindRecentTexts(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	var texts []string
	err := s.gdb.WithContext(ctx).
		Model(&Item{}).
		Where("text <> ''").
		Order("created_at desc").
		Limit(limit).
		Pluck("text", &texts).Error
	if err != nil {
		return nil, fmt.Errorf("load recent texts: %w", err)
	}
	return texts, nil
}

func (s *GormStore) ListRankableItems(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []Item
	err := s.gdb.WithContext(ctx).
		Order("published_at desc NULLS LAST, created_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list rankable items: %w", err)
	}
	return items, nil
}

func (s *GormStore) ListRecentlySeenItemIDs(ctx context.Context, userID string, since time.Time) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	if strings.TrimSpace(userID) == "" {
		return seen, nil
	}

	var ids []string
	err := s.gdb.WithContext(ctx).
		Model(&Event{}).
		Where("user_id = ? AND name IN ? AND created_at >= ?", userID, []string{"deck.view", "deck.swipe"}, since).
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list recently seen items: %w", err)
	}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

func (s *GormStore) RecordSeen(ctx context.Context, userID, itemID, name string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("user id and item id are required")
	}
	event := Event{UserID: userID, ItemID: itemID, Name: name}
	if err := s.gdb.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("record seen event: %w", err)
	}
	return nil
}
