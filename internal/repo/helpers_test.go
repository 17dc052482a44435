package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newBackendDB(t *testing.T) *gorm.DB {
	t.Helper()
	return newRepoDB(t, &domain.Client{}, &domain.Order{}, &domain.StatusChange{}, &domain.NotificationLog{}, &domain.Idempotency{})
}

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func seedClient(t *testing.T, db *gorm.DB, id string) *domain.Client {
	t.Helper()
	c := &domain.Client{
		ID:        id,
		Name:      "Ana " + id,
		Email:     id + "@example.org",
		Phone:     "+54 9 11 1234-5678",
		Status:    domain.ClientPending,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	if err := CreateClient(context.Background(), db, c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedOrder(t *testing.T, db *gorm.DB, clientID, id string) *domain.Order {
	t.Helper()
	o := domain.NewOrder(id, clientID, domain.OrderInput{ProductDescription: "Lámpara", Store: "IKEA"}, testNow)
	if err := CreateOrder(context.Background(), db, &o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return &o
}

// loadOrder finds an order through ListClients, the only read path the
// tracker uses.
func loadOrder(t *testing.T, db *gorm.DB, clientID, orderID string) domain.Order {
	t.Helper()
	c := loadClient(t, db, clientID)
	for _, o := range c.Orders {
		if o.ID == orderID {
			return o
		}
	}
	t.Fatalf("order %s/%s not found", clientID, orderID)
	return domain.Order{}
}

func loadClient(t *testing.T, db *gorm.DB, id string) domain.Client {
	t.Helper()
	all, err := ListClients(context.Background(), db)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	for _, c := range all {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("client %s not found", id)
	return domain.Client{}
}
