package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func TestKV_PutGetOverwrite(t *testing.T) {
	db := newRepoDB(t, &domain.KVEntry{})
	ctx := context.Background()

	if _, err := GetKV(ctx, db, "whatsappSettings"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := PutKV(ctx, db, "whatsappSettings", `{"a":1}`, testNow); err != nil {
		t.Fatalf("PutKV: %v", err)
	}
	if err := PutKV(ctx, db, "whatsappSettings", `{"a":2}`, testNow.Add(time.Minute)); err != nil {
		t.Fatalf("PutKV overwrite: %v", err)
	}

	v, err := GetKV(ctx, db, "whatsappSettings")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if v != `{"a":2}` {
		t.Fatalf("expected overwritten value, got %q", v)
	}

	var n int64
	db.Model(&domain.KVEntry{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected a single row, got %d", n)
	}
}
