package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestIdempotency_Migration_UniqueKeyPerActorAndClient(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&Idempotency{}))

	m := db.Migrator()
	assert.True(t, m.HasTable(&Idempotency{}))
	assert.True(t, m.HasIndex(&Idempotency{}, "ux_actor_client_key"))

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:        "id-1",
		Actor:     "ip:10.0.0.1",
		ClientID:  "c1",
		Key:       "k1",
		OrderID:   "o1",
		Status:    201,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, db.Create(rec).Error)

	var got Idempotency
	require.NoError(t, db.First(&got, "id = ?", "id-1").Error)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, 201, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	dup := &Idempotency{
		ID:        "id-2",
		Actor:     "ip:10.0.0.1",
		ClientID:  "c1",
		Key:       "k1",
		OrderID:   "o2",
		Status:    201,
		ExpiresAt: now.Add(time.Hour),
	}
	assert.Error(t, db.Create(dup).Error, "same (actor, client, key) must be rejected")

	other := &Idempotency{
		ID:        "id-3",
		Actor:     "ip:10.0.0.1",
		ClientID:  "c2",
		Key:       "k1",
		OrderID:   "o3",
		Status:    201,
		ExpiresAt: now.Add(time.Hour),
	}
	assert.NoError(t, db.Create(other).Error, "same key for another client is a different scope")
}
