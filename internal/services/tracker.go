// Package services – Tracker
//
// Tracker is the single entry point for every client and order mutation. It
// owns an immutable snapshot of the client collection: readers load it
// without locking, writers serialize on a mutex, clone the collection,
// apply the pure domain rules to the clone, persist through the backend and
// finally swap the snapshot in. A failed write leaves the previous snapshot
// untouched unless offline fallback is enabled, in which case the change is
// applied locally and mirrored to the cache.
//
// Status changes recompute the owning client's status and, when auto-notify
// is on, dispatch a notification in the background. Wait blocks until those
// dispatches finish.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// client and order identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/search"
)

// DefaultBackendTimeout bounds each backend call when Timeout is unset.
const DefaultBackendTimeout = 15 * time.Second

// Snapshot sources reported by Load.
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
	SourceEmpty   = "empty"
)

// ClientRepo defines the persistence contract required by Tracker.
type ClientRepo interface {
	ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error)
	CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error
	UpdateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error
	UpdateClientStatus(ctx context.Context, db *gorm.DB, id string, status domain.ClientStatus, now time.Time) error
	DeleteClient(ctx context.Context, db *gorm.DB, id string) error
	CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error
	SaveOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error
	DeleteOrder(ctx context.Context, db *gorm.DB, clientID, orderID string) error
}

// SnapshotCache keeps the last-known-good client collection.
type SnapshotCache interface {
	Load(ctx context.Context) ([]domain.Client, error)
	Save(ctx context.Context, clients []domain.Client) error
}

// Notifier dispatches the notification for an order's current status.
type Notifier interface {
	Notify(ctx context.Context, c domain.Client, o domain.Order) (notify.Outcome, error)
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Query  string
	Status domain.ClientStatus
}

type snapshot struct {
	clients []domain.Client
	version uint64
	index   search.Index
}

var emptySnapshot = &snapshot{clients: []domain.Client{}, index: search.NewIndex(nil)}

// Tracker serializes client/order mutations over a copy-on-write snapshot.
type Tracker struct {
	// DB is the backend handle passed to Repo. Writes that touch several
	// rows run in one transaction when DB is set.
	DB   *gorm.DB
	Repo ClientRepo

	// Cache mirrors every installed snapshot and serves Load when the
	// backend is down. Optional.
	Cache SnapshotCache

	Settings notify.SettingsProvider
	Notifier Notifier

	// Policy gates status changes; nil means domain.AllowAnyTransition.
	Policy domain.TransitionPolicy

	Timeout time.Duration
	// NotifyTimeout bounds one background dispatch; zero means Timeout.
	NotifyTimeout   time.Duration
	OfflineFallback bool

	Now   func() time.Time
	NewID func() string

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
	wg   sync.WaitGroup
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

func (t *Tracker) newID() string {
	if t.NewID != nil {
		return t.NewID()
	}
	return uuid.NewString()
}

func (t *Tracker) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultBackendTimeout
}

func (t *Tracker) policy() domain.TransitionPolicy {
	if t.Policy != nil {
		return t.Policy
	}
	return domain.AllowAnyTransition
}

func (t *Tracker) current() *snapshot {
	if s := t.snap.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// install swaps in clients as the new snapshot. Callers hold t.mu.
func (t *Tracker) install(clients []domain.Client, mirror bool) {
	prev := t.current()
	s := &snapshot{
		clients: clients,
		version: prev.version + 1,
		index:   search.NewIndex(search.ClientDocs(clients)),
	}
	t.snap.Store(s)
	snapshotClients.Set(float64(len(clients)))

	if mirror && t.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout())
		defer cancel()
		if err := t.Cache.Save(ctx, clients); err != nil {
			log.Warn().Err(err).Str("component", "tracker").Msg("client cache save failed")
		}
	}
}

// inTx runs fn inside a transaction when a DB handle is configured.
func (t *Tracker) inTx(ctx context.Context, fn func(ctx context.Context, db *gorm.DB) error) error {
	if t.DB == nil {
		return fn(ctx, nil)
	}
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// persist runs fn against the backend under the configured timeout. With
// offline fallback a failure is logged and swallowed so the caller applies
// the change locally.
func (t *Tracker) persist(ctx context.Context, op string, fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout())
	defer cancel()

	err := t.inTx(ctx, fn)
	if err == nil {
		return nil
	}
	if t.OfflineFallback {
		backendFallbacks.WithLabelValues(op).Inc()
		log.Warn().Err(err).Str("component", "tracker").Str("op", op).Msg("backend write failed; applied locally")
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}

// ----------------------------------------------------------------------------
// Loading and reads

// Load replaces the snapshot with the backend's collection. When the backend
// fails it falls back to the cache. It reports which source was used; with
// neither available the snapshot is empty and the error wraps
// ErrBackendUnavailable.
func (t *Tracker) Load(ctx context.Context) (string, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "Load")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	bctx, cancel := context.WithTimeout(ctx, t.timeout())
	clients, err := t.Repo.ListClients(bctx, t.DB)
	cancel()
	if err == nil {
		t.install(domain.SanitizeClients(clients), true)
		span.SetAttributes(attribute.String("source", SourceBackend))
		return SourceBackend, nil
	}
	log.Warn().Err(err).Str("component", "tracker").Msg("backend list failed; trying cache")

	if t.Cache != nil {
		cached, cerr := t.Cache.Load(ctx)
		if cerr == nil {
			t.install(domain.SanitizeClients(cached), false)
			span.SetAttributes(attribute.String("source", SourceCache))
			return SourceCache, nil
		}
		log.Warn().Err(cerr).Str("component", "tracker").Msg("client cache load failed")
	}

	t.install([]domain.Client{}, false)
	span.SetAttributes(attribute.String("source", SourceEmpty))
	return SourceEmpty, fmt.Errorf("%w: list clients: %v", ErrBackendUnavailable, err)
}

// Version increases with every installed snapshot.
func (t *Tracker) Version() uint64 { return t.current().version }

// List returns copies of the clients matching f. With a query the result is
// ranked by relevance, otherwise it keeps creation order.
func (t *Tracker) List(f ListFilter) []domain.Client {
	s := t.current()

	candidates := s.clients
	if strings.TrimSpace(f.Query) != "" {
		hits := s.index.Search(f.Query, 0)
		byID := make(map[string]int, len(s.clients))
		for i, c := range s.clients {
			byID[c.ID] = i
		}
		candidates = make([]domain.Client, 0, len(hits))
		for _, h := range hits {
			if i, ok := byID[h.ID]; ok {
				candidates = append(candidates, s.clients[i])
			}
		}
	}

	out := make([]domain.Client, 0, len(candidates))
	for _, c := range candidates {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// Get returns a copy of one client.
func (t *Tracker) Get(id string) (domain.Client, error) {
	s := t.current()
	i := indexOf(s.clients, id)
	if i < 0 {
		return domain.Client{}, ErrClientNotFound
	}
	return s.clients[i].Clone(), nil
}

// GetOrder returns copies of an order and its owning client.
func (t *Tracker) GetOrder(clientID, orderID string) (domain.Client, domain.Order, error) {
	c, err := t.Get(clientID)
	if err != nil {
		return domain.Client{}, domain.Order{}, err
	}
	oi := c.OrderIndex(orderID)
	if oi < 0 {
		return domain.Client{}, domain.Order{}, ErrOrderNotFound
	}
	return c, c.Orders[oi], nil
}

// Stats computes the dashboard counters over the current snapshot.
func (t *Tracker) Stats() domain.Stats {
	return domain.ComputeStats(t.current().clients)
}

func indexOf(clients []domain.Client, id string) int {
	for i, c := range clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ----------------------------------------------------------------------------
// Client mutations

// CreateClient validates in and adds a pending client without orders.
func (t *Tracker) CreateClient(ctx context.Context, in ClientInput) (domain.Client, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "CreateClient")
	defer span.End()

	in = in.normalized()
	if err := check(in); err != nil {
		return domain.Client{}, err
	}

	now := t.now()
	c := domain.Client{
		ID:        t.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Status:    domain.ClientPending,
		Orders:    []domain.Order{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("client.id", c.ID))

	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.persist(ctx, "create_client", func(ctx context.Context, db *gorm.DB) error {
		row := c.Clone()
		return t.Repo.CreateClient(ctx, db, &row)
	})
	if err != nil {
		return domain.Client{}, err
	}

	next := append(domain.CloneClients(t.current().clients), c)
	t.install(next, true)
	return c.Clone(), nil
}

// UpdateClient replaces the contact fields of a client.
func (t *Tracker) UpdateClient(ctx context.Context, id string, in ClientInput) (domain.Client, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "UpdateClient", trace.WithAttributes(attribute.String("client.id", id)))
	defer span.End()

	in = in.normalized()
	if err := check(in); err != nil {
		return domain.Client{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := domain.CloneClients(t.current().clients)
	ci := indexOf(next, id)
	if ci < 0 {
		return domain.Client{}, ErrClientNotFound
	}
	c := &next[ci]
	c.Name, c.Email, c.Phone = in.Name, in.Email, in.Phone
	c.UpdatedAt = t.now()

	row := *c
	if err := t.persist(ctx, "update_client", func(ctx context.Context, db *gorm.DB) error {
		return t.Repo.UpdateClient(ctx, db, &row)
	}); err != nil {
		return domain.Client{}, err
	}

	t.install(next, true)
	return c.Clone(), nil
}

// DeleteClient removes a client and all of its orders.
func (t *Tracker) DeleteClient(ctx context.Context, id string) error {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "DeleteClient", trace.WithAttributes(attribute.String("client.id", id)))
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.current().clients
	ci := indexOf(cur, id)
	if ci < 0 {
		return ErrClientNotFound
	}
	if err := t.persist(ctx, "delete_client", func(ctx context.Context, db *gorm.DB) error {
		return t.Repo.DeleteClient(ctx, db, id)
	}); err != nil {
		return err
	}

	next := make([]domain.Client, 0, len(cur)-1)
	for i, c := range cur {
		if i != ci {
			next = append(next, c.Clone())
		}
	}
	t.install(next, true)
	return nil
}

// ----------------------------------------------------------------------------
// Order mutations

// AddOrder creates an order in purchased for clientID. A pending client is
// promoted to active. No notification is sent.
func (t *Tracker) AddOrder(ctx context.Context, clientID string, in OrderInput) (domain.Order, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "AddOrder", trace.WithAttributes(attribute.String("client.id", clientID)))
	defer span.End()

	in = in.normalized()
	if err := check(in); err != nil {
		return domain.Order{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := domain.CloneClients(t.current().clients)
	ci := indexOf(next, clientID)
	if ci < 0 {
		return domain.Order{}, ErrClientNotFound
	}
	now := t.now()
	c := &next[ci]
	o := domain.NewOrder(t.newID(), clientID, in.toDomain(), now)
	c.Orders = append(c.Orders, o)
	c.Status = domain.PromoteOnOrderCreated(c.Status)
	c.UpdatedAt = now
	span.SetAttributes(attribute.String("order.id", o.ID))

	status := c.Status
	if err := t.persist(ctx, "add_order", func(ctx context.Context, db *gorm.DB) error {
		row := o.Clone()
		if err := t.Repo.CreateOrder(ctx, db, &row); err != nil {
			return err
		}
		return t.Repo.UpdateClientStatus(ctx, db, clientID, status, now)
	}); err != nil {
		return domain.Order{}, err
	}

	t.install(next, true)
	return o.Clone(), nil
}

// UpdateOrder replaces the descriptive fields of an order. A non-empty
// status that differs from the current one is applied as a status change,
// with the same policy check, client recompute and auto-notify as
// AdvanceStatus.
func (t *Tracker) UpdateOrder(ctx context.Context, clientID, orderID string, in OrderInput, status domain.ShippingStatus) (domain.Order, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "UpdateOrder",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.String("order.id", orderID),
		),
	)
	defer span.End()

	in = in.normalized()
	if err := check(in); err != nil {
		return domain.Order{}, err
	}
	fields := in.toDomain()
	return t.changeOrder(ctx, "update_order", clientID, orderID, &fields, status, false)
}

// AdvanceStatus moves an order to status.
//
// The transition policy is consulted first. The history gains an entry
// only for a status it has not seen; Status and UpdatedAt always change.
// The client's status is recomputed. When auto-notify is enabled and the
// current history entry has not been notified, a notification is
// dispatched in the background; the call does not wait for it.
func (t *Tracker) AdvanceStatus(ctx context.Context, clientID, orderID string, status domain.ShippingStatus) (domain.Order, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "AdvanceStatus",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.String("order.id", orderID),
			attribute.String("order.status", string(status)),
		),
	)
	defer span.End()

	if !status.Valid() {
		return domain.Order{}, invalid("status", ErrInvalidStatus, fmt.Sprintf("unknown value %q", string(status)))
	}
	return t.changeOrder(ctx, "advance_status", clientID, orderID, nil, status, true)
}

// changeOrder applies optional field updates and an optional status change.
// always forces the status path even when status equals the current one.
func (t *Tracker) changeOrder(ctx context.Context, op, clientID, orderID string, fields *domain.OrderInput, status domain.ShippingStatus, always bool) (domain.Order, error) {
	if status != "" && !status.Valid() {
		return domain.Order{}, invalid("status", ErrInvalidStatus, fmt.Sprintf("unknown value %q", string(status)))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := domain.CloneClients(t.current().clients)
	ci := indexOf(next, clientID)
	if ci < 0 {
		return domain.Order{}, ErrClientNotFound
	}
	c := &next[ci]
	oi := c.OrderIndex(orderID)
	if oi < 0 {
		return domain.Order{}, ErrOrderNotFound
	}

	now := t.now()
	o := c.Orders[oi]
	from := o.Status
	if fields != nil {
		o.ProductDescription = fields.ProductDescription
		o.Store = fields.Store
		o.TrackingNumber = fields.TrackingNumber
		o.UpdatedAt = now
	}

	transition := status != "" && (always || status != from)
	if transition {
		if err := t.policy()(from, status); err != nil {
			return domain.Order{}, fmt.Errorf("%w: %v", ErrTransitionRejected, err)
		}
		o = domain.AdvanceStatus(o, status, now)
		c.Orders[oi] = o
		c.Status = domain.RecomputeClientStatus(c.Orders)
		c.UpdatedAt = now
	} else {
		c.Orders[oi] = o
	}

	clientStatus := c.Status
	if err := t.persist(ctx, op, func(ctx context.Context, db *gorm.DB) error {
		row := o.Clone()
		if err := t.Repo.SaveOrder(ctx, db, &row); err != nil {
			return err
		}
		if !transition {
			return nil
		}
		return t.Repo.UpdateClientStatus(ctx, db, clientID, clientStatus, now)
	}); err != nil {
		return domain.Order{}, err
	}

	t.install(next, true)

	if transition {
		statusTransitions.WithLabelValues(string(from), string(status)).Inc()
		log.Info().
			Str("component", "tracker").
			Str("client_id", clientID).
			Str("order_id", orderID).
			Str("from", string(from)).
			Str("to", string(status)).
			Str("client_status", string(clientStatus)).
			Msg("order status changed")

		t.dispatchAsync(ctx, c.Clone(), o.Clone())
	}
	return o.Clone(), nil
}

// DeleteOrder removes an order and recomputes the client's status.
func (t *Tracker) DeleteOrder(ctx context.Context, clientID, orderID string) error {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "DeleteOrder",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.String("order.id", orderID),
		),
	)
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	next := domain.CloneClients(t.current().clients)
	ci := indexOf(next, clientID)
	if ci < 0 {
		return ErrClientNotFound
	}
	c := &next[ci]
	oi := c.OrderIndex(orderID)
	if oi < 0 {
		return ErrOrderNotFound
	}

	now := t.now()
	c.Orders = append(c.Orders[:oi], c.Orders[oi+1:]...)
	c.Status = domain.RecomputeClientStatus(c.Orders)
	c.UpdatedAt = now

	status := c.Status
	if err := t.persist(ctx, "delete_order", func(ctx context.Context, db *gorm.DB) error {
		if err := t.Repo.DeleteOrder(ctx, db, clientID, orderID); err != nil {
			return err
		}
		return t.Repo.UpdateClientStatus(ctx, db, clientID, status, now)
	}); err != nil {
		return err
	}

	t.install(next, true)
	return nil
}

// ----------------------------------------------------------------------------
// Notifications

// MarkNotified flags the most recent history entry for status. It is the
// Recorder the dispatcher reports successful hand-offs to. An order without
// such an entry is left unchanged.
func (t *Tracker) MarkNotified(ctx context.Context, clientID, orderID string, status domain.ShippingStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := domain.CloneClients(t.current().clients)
	ci := indexOf(next, clientID)
	if ci < 0 {
		return ErrClientNotFound
	}
	c := &next[ci]
	oi := c.OrderIndex(orderID)
	if oi < 0 {
		return ErrOrderNotFound
	}
	updated, ok := domain.MarkNotified(c.Orders[oi], status)
	if !ok {
		return nil
	}
	c.Orders[oi] = updated

	if err := t.persist(ctx, "mark_notified", func(ctx context.Context, db *gorm.DB) error {
		row := updated.Clone()
		return t.Repo.SaveOrder(ctx, db, &row)
	}); err != nil {
		return err
	}

	t.install(next, true)
	return nil
}

// Resend dispatches the notification for an order's current status and
// waits for the outcome. It ignores autoNotify but the dispatcher still
// honors notificationsEnabled.
func (t *Tracker) Resend(ctx context.Context, clientID, orderID string) (notify.Outcome, error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "Resend",
		trace.WithAttributes(
			attribute.String("client.id", clientID),
			attribute.String("order.id", orderID),
		),
	)
	defer span.End()

	c, o, err := t.GetOrder(clientID, orderID)
	if err != nil {
		return notify.Outcome{}, err
	}
	if t.Notifier == nil {
		return notify.Outcome{Status: o.Status}, notify.ErrNotificationsDisabled
	}
	return t.Notifier.Notify(ctx, c, o)
}

// ResendPending dispatches, one at a time, every order whose current
// history entry is not yet notified. It does nothing unless auto-notify is
// on. It returns how many dispatches were attempted and how many succeeded.
func (t *Tracker) ResendPending(ctx context.Context) (attempted, sent int, err error) {
	tr := otel.Tracer("services/Tracker")
	ctx, span := tr.Start(ctx, "ResendPending")
	defer span.End()

	if t.Notifier == nil || t.Settings == nil || !t.Settings.Get().ShouldAutoNotify() {
		return 0, 0, nil
	}

	for _, c := range t.current().clients {
		for _, o := range c.Orders {
			entry, ok := o.CurrentEntry()
			if !ok || entry.NotificationSent {
				continue
			}
			if err := ctx.Err(); err != nil {
				return attempted, sent, err
			}
			attempted++
			if _, nerr := t.Notifier.Notify(ctx, c.Clone(), o.Clone()); nerr == nil {
				sent++
			} else if errors.Is(nerr, notify.ErrNotificationsDisabled) {
				return attempted, sent, nil
			}
		}
	}
	span.SetAttributes(attribute.Int("attempted", attempted), attribute.Int("sent", sent))
	return attempted, sent, nil
}

// dispatchAsync notifies in the background when auto-notify is on. The
// dispatch outlives the request context but keeps its trace.
func (t *Tracker) dispatchAsync(ctx context.Context, c domain.Client, o domain.Order) {
	if t.Notifier == nil || t.Settings == nil || !t.Settings.Get().ShouldAutoNotify() {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		window := t.NotifyTimeout
		if window <= 0 {
			window = t.timeout()
		}
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), window)
		defer cancel()
		// the dispatcher logs and records the outcome
		_, _ = t.Notifier.Notify(nctx, c, o)
	}()
}

// Wait blocks until background notifications have finished.
func (t *Tracker) Wait() { t.wg.Wait() }
