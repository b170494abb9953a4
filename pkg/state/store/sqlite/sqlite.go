// Package sqlite provides the default state.Store: a single-file SQLite
// database via GORM and the pure-Go glebarez driver, so the server builds
// without cgo.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// Store implements state.Store on a SQLite file.
type Store struct {
	db *gorm.DB
}

var _ state.Store = (*Store)(nil)

// New opens (creating if necessary) the database at path and migrates the
// schema.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL allows concurrent readers while the registry writes; busy_timeout
	// covers admin commands running against a live server.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM handle, for advanced queries and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) LoadClients(ctx context.Context) ([]*models.Client, error) {
	var out []*models.Client
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadFiles(ctx context.Context) ([]*models.File, error) {
	var out []*models.File
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveClient(ctx context.Context, client *models.Client) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(client).Error
}

func (s *Store) SaveFile(ctx context.Context, file *models.File) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(file).Error
}

func (s *Store) DeleteFile(ctx context.Context, pathName string) error {
	return s.db.WithContext(ctx).
		Where("path_name = ?", pathName).
		Delete(&models.File{}).Error
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
