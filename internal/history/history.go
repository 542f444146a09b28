// Package history keeps a SQLite record of every download attempt.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"

	clip_archiver "github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/generic"
)

type EntryID = string

type Entry struct {
	ID         EntryID `gorm:"primaryKey"`
	URL        string  `gorm:"index;not null"`
	Provider   string
	Title      string
	Files      []string `gorm:"serializer:json"`
	Error      string
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
}

func (e *Entry) Succeeded() bool {
	return e.Error == ""
}

func (e *Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

type Database struct {
	db *gorm.DB
}

var _ clip_archiver.History = (*Database)(nil)

// Open opens (creating if necessary) the history database at path and brings its schema up to date.
func Open(path string, logger *zap.Logger) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	gormLog := zapgorm2.New(logger.Named("history"))
	gormLog.IgnoreRecordNotFoundError = true
	gormLog.LogLevel = gormlogger.Warn
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	d := &Database{db}
	if err := d.Migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Migrate() error {
	if err := d.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a finished attempt as a new entry.
func (d *Database) Record(ctx context.Context, attempt clip_archiver.Attempt) error {
	_, err := d.Insert(ctx, attempt)
	return err
}

func (d *Database) Insert(ctx context.Context, attempt clip_archiver.Attempt) (*Entry, error) {
	entry := &Entry{
		ID:         generic.Unwrap(uuid.NewRandom()).String(),
		URL:        attempt.URL,
		Provider:   attempt.Provider,
		Title:      attempt.Title,
		Files:      attempt.Files,
		StartedAt:  attempt.StartedAt,
		FinishedAt: attempt.FinishedAt,
	}
	if attempt.Err != nil {
		entry.Error = attempt.Err.Error()
	}
	if err := d.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, most recent first. A limit of 0 or less returns everything.
func (d *Database) List(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	q := d.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByID returns (nil, nil) if the error is only that no such entry exists.
func (d *Database) GetByID(ctx context.Context, id EntryID) (*Entry, error) {
	return d.first(d.db.WithContext(ctx).Where("id = ?", id))
}

// LatestForURL returns the most recent attempt for url, or (nil, nil) if there is none.
func (d *Database) LatestForURL(ctx context.Context, url string) (*Entry, error) {
	return d.first(d.db.WithContext(ctx).Where("url = ?", url).Order("started_at DESC"))
}

func (d *Database) first(q *gorm.DB) (*Entry, error) {
	e := Entry{}
	if err := q.First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		} else {
			return nil, err
		}
	}
	return &e, nil
}
