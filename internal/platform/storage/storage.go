package storage

import (
	"context"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/storage/migrations"
)

// Open creates (if needed) and migrates the SQLite database at path.
// ":memory:" opens a private in-memory database.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = "file::memory:"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "storage.open", "create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "open database", err)
	}

	// a single connection keeps the in-memory database alive and serialises writers
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	mgr := NewMigrationManager(db)
	mgr.AddMigration(&migrations.Migration001Preferences{})
	mgr.AddMigration(&migrations.Migration002TransactionLogs{})
	if err := mgr.RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TransactionJournal persists local transaction history.
type TransactionJournal struct {
	db *gorm.DB
}

func NewTransactionJournal(db *gorm.DB) *TransactionJournal {
	return &TransactionJournal{db: db}
}

func (j *TransactionJournal) Append(ctx context.Context, entry TransactionLog) error {
	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "journal.append", "insert transaction log", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *TransactionJournal) Recent(ctx context.Context, limit int) ([]TransactionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []TransactionLog
	if err := j.db.WithContext(ctx).Order("occurred_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "journal.recent", "query transaction logs", err)
	}
	return out, nil
}
