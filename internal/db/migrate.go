package db

import (
	"context"
	"fmt"
)

// Migrate creates or updates the bubble schema tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	if s == nil || s.gdb == nil {
		return fmt.Errorf("store is not initialized")
	}

	if err := s.gdb.WithContext(ctx).Exec("CREATE SCHEMA IF NOT EXISTS bubble").Error; err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := s.gdb.WithContext(ctx).AutoMigrate(&Source{}, &Item{}, &Event{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
