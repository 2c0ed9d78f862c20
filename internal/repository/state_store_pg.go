package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pictura/imagegen/internal/model"
)

type pgStateStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPGStateStore keeps ephemeral state in the state_entries table.
// Expired rows are invisible to reads and removed by PurgeExpired.
func NewPGStateStore(db *gorm.DB) StateStore {
	return newPGStateStore(db, time.Now)
}

func newPGStateStore(db *gorm.DB, now func() time.Time) *pgStateStore {
	return &pgStateStore{db: db, now: now}
}

func (s *pgStateStore) entry(key string, value []byte, ttl time.Duration) *model.StateEntry {
	now := s.now().UTC()
	e := &model.StateEntry{StateKey: key, Value: value, CreatedAt: now, UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		e.ExpiresAt = &exp
	}
	return e
}

func (s *pgStateStore) live(tx *gorm.DB, now time.Time) *gorm.DB {
	return tx.Where("expires_at IS NULL OR expires_at > ?", now)
}

func (s *pgStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "created_at", "updated_at"}),
	}).Create(s.entry(key, value, ttl)).Error
}

func (s *pgStateStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()
		if err := tx.Where("state_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
			Delete(&model.StateEntry{}).Error; err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(s.entry(key, value, ttl))
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected == 1
		return nil
	})
	return created, err
}

func (s *pgStateStore) Update(ctx context.Context, key string, value []byte) (bool, error) {
	now := s.now().UTC()
	res := s.live(s.db.WithContext(ctx).Model(&model.StateEntry{}).Where("state_key = ?", key), now).
		Updates(map[string]any{"value": value, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *pgStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e model.StateEntry
	err := s.live(s.db.WithContext(ctx).Where("state_key = ?", key), s.now().UTC()).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (s *pgStateStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&model.StateEntry{}).Error
}

func (s *pgStateStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := s.live(s.db.WithContext(ctx).Model(&model.StateEntry{}).Where("state_key = ?", key), s.now().UTC()).
		Count(&n).Error
	return n > 0, err
}

func (s *pgStateStore) PurgeExpired(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&model.StateEntry{})
	return int(res.RowsAffected), res.Error
}
