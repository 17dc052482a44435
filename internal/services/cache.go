package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// Storage keys in the local cache database.
const (
	ClientsCacheKey = "demo_clients"
	SettingsKey     = "whatsappSettings"
)

// KVStore is the key-value contract of the local cache database.
type KVStore interface {
	GetKV(ctx context.Context, db *gorm.DB, key string) (string, error)
	PutKV(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error
}

// Placeholder values the dashboard used for empty form fields. Cached
// clients carrying any of them are dropped on load.
var (
	placeholderNames  = []string{"", "Nuevo cliente", "Cliente"}
	placeholderEmails = []string{"cliente@ejemplo.com", "email@example.com"}
	placeholderPhones = []string{"+54 9 11 0000-0000"}
)

// ClientCache stores the last-known-good client collection as one JSON blob.
type ClientCache struct {
	DB    *gorm.DB
	Store KVStore
	Key   string
	Now   func() time.Time
}

func (c *ClientCache) key() string {
	if c.Key != "" {
		return c.Key
	}
	return ClientsCacheKey
}

// Load returns the cached collection without placeholder clients. A missing
// entry is an error so the caller can tell it from an empty collection.
func (c *ClientCache) Load(ctx context.Context) ([]domain.Client, error) {
	raw, err := c.Store.GetKV(ctx, c.DB, c.key())
	if err != nil {
		return nil, fmt.Errorf("load client cache: %w", err)
	}
	var clients []domain.Client
	if err := json.Unmarshal([]byte(raw), &clients); err != nil {
		return nil, fmt.Errorf("decode client cache: %w", err)
	}

	out := make([]domain.Client, 0, len(clients))
	for _, cl := range clients {
		if isPlaceholder(cl) {
			continue
		}
		out = append(out, cl)
	}
	return domain.SanitizeClients(out), nil
}

// Save replaces the cached collection.
func (c *ClientCache) Save(ctx context.Context, clients []domain.Client) error {
	if clients == nil {
		clients = []domain.Client{}
	}
	b, err := json.Marshal(clients)
	if err != nil {
		return fmt.Errorf("encode client cache: %w", err)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.Store.PutKV(ctx, c.DB, c.key(), string(b), now())
}

func isPlaceholder(c domain.Client) bool {
	return matchesAny(c.Name, placeholderNames) ||
		matchesAny(c.Email, placeholderEmails) ||
		matchesAny(c.Phone, placeholderPhones)
}

func matchesAny(v string, candidates []string) bool {
	fold := cases.Fold()
	key := fold.String(v)
	for _, s := range candidates {
		if key == fold.String(s) {
			return true
		}
	}
	return false
}
