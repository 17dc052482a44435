// Package handlers exposes the shipment-tracking dashboard API.
//
// Handlers are transport-thin: they decode input, call the tracker or the
// settings service, and translate results into HTTP responses (including
// conditional ones). Every mutation goes through the Tracker, which owns
// the client collection.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/services"
	"github.com/tbourn/go-shipment-tracker/internal/utils"
)

//
// Service contracts (context-aware)
//

// Tracker is the client/order state consumed by the handlers. Reads never
// block; writes are serialized by the implementation.
type Tracker interface {
	Version() uint64
	List(f services.ListFilter) []domain.Client
	Get(id string) (domain.Client, error)
	GetOrder(clientID, orderID string) (domain.Client, domain.Order, error)
	Stats() domain.Stats

	CreateClient(ctx context.Context, in services.ClientInput) (domain.Client, error)
	UpdateClient(ctx context.Context, id string, in services.ClientInput) (domain.Client, error)
	DeleteClient(ctx context.Context, id string) error

	AddOrder(ctx context.Context, clientID string, in services.OrderInput) (domain.Order, error)
	UpdateOrder(ctx context.Context, clientID, orderID string, in services.OrderInput, status domain.ShippingStatus) (domain.Order, error)
	DeleteOrder(ctx context.Context, clientID, orderID string) error
	AdvanceStatus(ctx context.Context, clientID, orderID string, status domain.ShippingStatus) (domain.Order, error)

	// Resend dispatches synchronously and returns the outcome.
	Resend(ctx context.Context, clientID, orderID string) (notify.Outcome, error)
}

// SettingsService serves and replaces the WhatsApp settings.
type SettingsService interface {
	Get() domain.WhatsAppSettings
	Update(ctx context.Context, raw []byte) (domain.WhatsAppSettings, error)
}

// NotificationLogs reads recorded dispatch outcomes, newest first. An empty
// orderID means all orders.
type NotificationLogs interface {
	List(ctx context.Context, orderID string, limit int) ([]domain.NotificationLog, error)
	Stats(ctx context.Context, orderID string) (count int64, latest *time.Time, err error)
}

// IdempotencyStore remembers which order an (actor, client, key) created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, actor, clientID, key string, now time.Time) (orderID string, found bool, err error)
	Remember(ctx context.Context, actor, clientID, key, orderID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the dashboard endpoints. Logs and Idem may be nil: the
// notifications endpoint then serves an empty list and order creation is
// not idempotent.
type Handlers struct {
	tracker  Tracker
	settings SettingsService
	logs     NotificationLogs
	idem     IdempotencyStore
	now      func() time.Time
}

// New constructs a Handlers instance bound to the given services.
func New(tracker Tracker, settings SettingsService, logs NotificationLogs, idem IdempotencyStore) *Handlers {
	return &Handlers{
		tracker:  tracker,
		settings: settings,
		logs:     logs,
		idem:     idem,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params,
// returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.BoundedInt(c.Query("page"), defaultPage, 1, 0)
	pageSize = utils.BoundedInt(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return
}

// paginate slices items for the requested page.
func paginate[T any](items []T, page, pageSize int) ([]T, Pagination) {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return items[start:end], Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// notModified sets etag and reports whether If-None-Match already matches,
// in which case a 304 has been written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
