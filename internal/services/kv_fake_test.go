package services

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// memKV is an in-memory KVStore.
type memKV struct {
	data   map[string]string
	getErr error
	putErr error
	puts   int
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) GetKV(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return v, nil
}

func (m *memKV) PutKV(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.data[key] = value
	return nil
}
