// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// NotificationLog model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// InsertNotificationLog appends a dispatch outcome.
func InsertNotificationLog(ctx context.Context, db *gorm.DB, l *domain.NotificationLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// ListNotificationLogs returns the most recent outcomes first. An empty
// orderID lists across all orders; limit <= 0 means no limit.
func ListNotificationLogs(ctx context.Context, db *gorm.DB, orderID string, limit int) ([]domain.NotificationLog, error) {
	var out []domain.NotificationLog
	q := db.WithContext(ctx).Order("created_at DESC, id DESC")
	if orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
