package domain

import "time"

// Idempotency records the order produced by a previous create request,
// keyed by (actor, client_id, key). A retried POST with the same key replays
// the stored order instead of creating a second one.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Actor     string    `gorm:"not null;uniqueIndex:ux_actor_client_key,priority:1"`
	ClientID  string    `gorm:"not null;uniqueIndex:ux_actor_client_key,priority:2"`
	Key       string    `gorm:"not null;uniqueIndex:ux_actor_client_key,priority:3"`
	OrderID   string    `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
