package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRevoked is returned when a revoked integration key is presented
var ErrRevoked = errors.New("api key revoked")

const usageHistoryDays = 30

// CreateAPIKey stores an integration key
func (s *Store) CreateAPIKey(ctx context.Context, k *APIKey) error {
	if k.KeyPreview == "" {
		k.KeyPreview = Preview(k.Key)
	}
	return translate(s.DB.WithContext(ctx).Create(k).Error)
}

// ListAPIKeys returns every integration key
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	err := s.DB.WithContext(ctx).Order("id").Find(&keys).Error
	return keys, err
}

// GetAPIKey returns a key record by id
func (s *Store) GetAPIKey(ctx context.Context, id uint) (*APIKey, error) {
	var k APIKey
	if err := s.DB.WithContext(ctx).First(&k, id).Error; err != nil {
		return nil, translate(err)
	}
	return &k, nil
}

// RevokeAPIKey marks an integration key revoked. The row is kept so a
// still-valid signature cannot re-register it.
func (s *Store) RevokeAPIKey(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAPIKey fetches or creates the record of a verified key and stamps its last use
func (s *Store) TouchAPIKey(ctx context.Context, key, name string) (*APIKey, error) {
	var k APIKey
	db := s.DB.WithContext(ctx)
	if err := db.Where(APIKey{Key: key}).FirstOrCreate(&k, APIKey{Key: key, Name: name, KeyPreview: Preview(key)}).Error; err != nil {
		return nil, err
	}
	if k.Revoked {
		return nil, ErrRevoked
	}
	now := time.Now()
	k.LastUsed = &now
	if err := db.Model(&k).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

// RecordUsage bumps today's usage row for a key in a single upsert
func (s *Store) RecordUsage(ctx context.Context, keyID uint, dispatched bool) error {
	d := 0
	if dispatched {
		d = 1
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"request_count": gorm.Expr("request_count + ?", 1),
			"dispatches":    gorm.Expr("dispatches + ?", d),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         time.Now().UTC().Format("2006-01-02"),
		RequestCount: 1,
		Dispatches:   d,
	}).Error
}

// Usage returns the most recent daily usage rows of a key, newest first
func (s *Store) Usage(ctx context.Context, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	err := s.DB.WithContext(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(usageHistoryDays).Find(&usage).Error
	return usage, err
}

// Preview masks a key for display
func Preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}
