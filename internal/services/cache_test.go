package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func TestClientCache_RoundTrip(t *testing.T) {
	kv := newMemKV()
	c := &ClientCache{Store: kv}
	in := []domain.Client{seededClient()}

	if err := c.Save(context.Background(), in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := kv.data[ClientsCacheKey]; !ok {
		t.Fatalf("expected key %q", ClientsCacheKey)
	}
	out, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].ID != "c1" || len(out[0].Orders[0].StatusHistory) != 1 {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestClientCache_Missing(t *testing.T) {
	c := &ClientCache{Store: newMemKV()}
	if _, err := c.Load(context.Background()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestClientCache_Malformed(t *testing.T) {
	kv := newMemKV()
	kv.data[ClientsCacheKey] = "{not json"
	c := &ClientCache{Store: kv}
	if _, err := c.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClientCache_DropsPlaceholders(t *testing.T) {
	kv := newMemKV()
	kv.data[ClientsCacheKey] = `[
		{"id":"a","name":"Ana","phone":"+54 11 1234 5678","status":"pending"},
		{"id":"b","name":"nuevo CLIENTE","phone":"+54 11 1234 5678","status":"pending"},
		{"id":"c","name":"Carla","email":"Cliente@Ejemplo.com","phone":"+54 11 1234 5678","status":"pending"},
		{"id":"d","name":"Dario","phone":"+54 9 11 0000-0000","status":"pending"},
		{"id":"e","name":"","phone":"+54 11 1234 5678","status":"pending"}
	]`
	c := &ClientCache{Store: kv}

	out, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("want only client a, got %+v", out)
	}
	if out[0].Orders == nil {
		t.Fatalf("orders must be sanitized to an empty slice")
	}
}

func TestClientCache_SaveNilWritesEmptyArray(t *testing.T) {
	kv := newMemKV()
	c := &ClientCache{Store: kv, Key: "custom"}
	if err := c.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if kv.data["custom"] != "[]" {
		t.Fatalf("got %q", kv.data["custom"])
	}
}
