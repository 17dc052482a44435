// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the key-value store used by the local
// cache database.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// GetKV returns the value stored under key, or ErrNotFound.
func GetKV(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var e domain.KVEntry
	if err := db.WithContext(ctx).Where("key = ?", key).First(&e).Error; err != nil {
		return "", err
	}
	return e.Value, nil
}

// PutKV inserts or replaces the value under key.
func PutKV(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	e := domain.KVEntry{Key: key, Value: value, UpdatedAt: now.UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&e).Error
}
