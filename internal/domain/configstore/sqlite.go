package configstore

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/storage"
)

type sqliteStore struct {
	db        *gorm.DB
	namespace string
	closed    atomic.Bool
}

// NewSQLite builds a store over the preferences table. The database is
// expected to be migrated by storage.Open.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, errors.New(errors.KindStorage, "configstore.sqlite", "sqlite store requires database handle")
	}
	return &sqliteStore{db: db, namespace: cfg.namespace()}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key, def string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	var pref storage.Preference
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", s.namespace, key).
		First(&pref).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return "", errors.Wrap(errors.KindStorage, "configstore.get", key, err)
	}
	return pref.Value, nil
}

func (s *sqliteStore) Put(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	pref := storage.Preference{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "configstore.put", key, err)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Delete(&storage.Preference{}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "configstore.clear", s.namespace, err)
	}
	return nil
}

// Close marks the store unusable; the shared database handle is owned by
// whoever opened it.
func (s *sqliteStore) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}
