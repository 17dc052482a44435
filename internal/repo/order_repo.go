// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order
// model and its status history.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// CreateOrder inserts o and its history. Seq is assigned from the history
// position.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	for i := range o.StatusHistory {
		o.StatusHistory[i].OrderID = o.ID
		o.StatusHistory[i].Seq = i
	}
	return db.WithContext(ctx).Create(o).Error
}

// SaveOrder writes the fields of o and replaces its history in one
// transaction. It returns ErrNotFound when the order row is missing.
func SaveOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("id = ?", o.ID).
			Updates(map[string]any{
				"product_description": o.ProductDescription,
				"store":               o.Store,
				"tracking_number":     o.TrackingNumber,
				"status":              o.Status,
				"updated_at":          o.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return replaceHistory(tx, o)
	})
}

// replaceHistory rewrites the history rows of o. History is short (at most
// one row per status), so a full rewrite keeps seq dense.
func replaceHistory(tx *gorm.DB, o *domain.Order) error {
	if err := tx.Where("order_id = ?", o.ID).Delete(&domain.StatusChange{}).Error; err != nil {
		return err
	}
	if len(o.StatusHistory) == 0 {
		return nil
	}
	rows := make([]domain.StatusChange, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		rows[i] = domain.StatusChange{
			OrderID:          o.ID,
			Seq:              i,
			Status:           h.Status,
			Timestamp:        h.Timestamp,
			NotificationSent: h.NotificationSent,
		}
	}
	return tx.Create(&rows).Error
}

// DeleteOrder removes an order of clientID and its history.
func DeleteOrder(ctx context.Context, db *gorm.DB, clientID, orderID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND client_id = ?", orderID, clientID).Delete(&domain.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("order_id = ?", orderID).Delete(&domain.StatusChange{}).Error
	})
}
