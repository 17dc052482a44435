// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Client
// model.
//
// Functions are thin: no business rules, only persistence and query
// composition. Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// withTree preloads orders (oldest first) and their history (by seq).
func withTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Orders", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Preload("Orders.StatusHistory", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("seq ASC")
		})
}

// ListClients returns every client with its orders and history, ordered by
// creation time (oldest first).
func ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	var out []domain.Client
	err := withTree(db.WithContext(ctx)).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CreateClient inserts c without its orders. The caller assigns ID and
// timestamps.
func CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return db.WithContext(ctx).Omit("Orders").Create(c).Error
}

// UpdateClient writes the contact fields and status of c. It returns
// ErrNotFound when no row matches.
func UpdateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":       c.Name,
			"email":      c.Email,
			"phone":      c.Phone,
			"status":     c.Status,
			"updated_at": c.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateClientStatus writes the derived status of a client.
func UpdateClientStatus(ctx context.Context, db *gorm.DB, id string, status domain.ClientStatus, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient removes a client with its orders and their history. Rows are
// deleted explicitly so the cascade holds even when the driver does not
// enforce foreign keys.
func DeleteClient(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderIDs := tx.Model(&domain.Order{}).Select("id").Where("client_id = ?", id)
		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&domain.StatusChange{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&domain.Order{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Client{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
