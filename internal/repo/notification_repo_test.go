package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func TestNotificationLogs_InsertListAndStats(t *testing.T) {
	db := newBackendDB(t)
	ctx := context.Background()

	count, latest, err := NotificationLogStats(ctx, db, "")
	if err != nil || count != 0 || latest != nil {
		t.Fatalf("empty stats: count=%d latest=%v err=%v", count, latest, err)
	}

	for i, orderID := range []string{"o1", "o2", "o1"} {
		l := &domain.NotificationLog{
			ID:        "n" + string(rune('1'+i)),
			ClientID:  "c1",
			OrderID:   orderID,
			Status:    domain.StatusPurchased,
			Channel:   "link",
			Message:   "hola",
			Success:   i != 1,
			CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		}
		if err := InsertNotificationLog(ctx, db, l); err != nil {
			t.Fatalf("InsertNotificationLog: %v", err)
		}
	}

	all, err := ListNotificationLogs(ctx, db, "", 0)
	if err != nil {
		t.Fatalf("ListNotificationLogs: %v", err)
	}
	if len(all) != 3 || all[0].ID != "n3" || all[2].ID != "n1" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	o1, err := ListNotificationLogs(ctx, db, "o1", 1)
	if err != nil {
		t.Fatalf("ListNotificationLogs o1: %v", err)
	}
	if len(o1) != 1 || o1[0].ID != "n3" {
		t.Fatalf("unexpected o1 page: %+v", o1)
	}

	count, latest, err = NotificationLogStats(ctx, db, "o1")
	if err != nil || count != 2 || latest == nil || !latest.Equal(testNow.Add(2*time.Minute)) {
		t.Fatalf("o1 stats: count=%d latest=%v err=%v", count, latest, err)
	}
}

func TestInsertNotificationLog_DefaultsCreatedAt(t *testing.T) {
	db := newBackendDB(t)
	l := &domain.NotificationLog{ID: "n1", ClientID: "c1", OrderID: "o1", Status: domain.StatusPurchased, Channel: "link", Message: "x"}
	if err := InsertNotificationLog(context.Background(), db, l); err != nil {
		t.Fatalf("InsertNotificationLog: %v", err)
	}
	if l.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
}
