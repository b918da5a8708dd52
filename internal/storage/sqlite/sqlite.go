package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"quickclip/internal/storage"
)

// SQLiteStorage persists history snapshots in a sqlite database through gorm.
type SQLiteStorage struct {
	db   *gorm.DB
	name string
}

// New creates a new SQLite storage instance
func New(config storage.Config) (*SQLiteStorage, error) {
	if dir := filepath.Dir(config.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&storage.SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		name: config.SnapshotName(),
	}, nil
}

// Load implements storage.Persister
func (s *SQLiteStorage) Load(ctx context.Context) ([]byte, error) {
	var model storage.SnapshotModel
	err := s.db.WithContext(ctx).Where("name = ?", s.name).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if model.Size > storage.MaxSnapshotSize {
		return nil, storage.ErrSnapshotTooLarge
	}
	return model.Data, nil
}

// Save implements storage.Persister
func (s *SQLiteStorage) Save(ctx context.Context, data []byte) error {
	model := storage.SnapshotModel{
		Name: s.name,
		Data: data,
		Size: int64(len(data)),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "size", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Close implements storage.Persister
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
