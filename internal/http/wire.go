package httpapi

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// clientRepoShim adapts the repository free functions to services.ClientRepo.
type clientRepoShim struct{}

func (clientRepoShim) ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	return repo.ListClients(ctx, db)
}

func (clientRepoShim) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.CreateClient(ctx, db, c)
}

func (clientRepoShim) UpdateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.UpdateClient(ctx, db, c)
}

func (clientRepoShim) UpdateClientStatus(ctx context.Context, db *gorm.DB, id string, s domain.ClientStatus, now time.Time) error {
	return repo.UpdateClientStatus(ctx, db, id, s, now)
}

func (clientRepoShim) DeleteClient(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteClient(ctx, db, id)
}

func (clientRepoShim) CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.CreateOrder(ctx, db, o)
}

func (clientRepoShim) SaveOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.SaveOrder(ctx, db, o)
}

func (clientRepoShim) DeleteOrder(ctx context.Context, db *gorm.DB, clientID, orderID string) error {
	return repo.DeleteOrder(ctx, db, clientID, orderID)
}

// kvShim adapts repo.GetKV/PutKV to services.KVStore.
type kvShim struct{}

func (kvShim) GetKV(ctx context.Context, db *gorm.DB, key string) (string, error) {
	return repo.GetKV(ctx, db, key)
}

func (kvShim) PutKV(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	return repo.PutKV(ctx, db, key, value, now)
}

// notificationLogShim binds the notification log table to one database for
// the dispatcher (writes) and the handlers (reads).
type notificationLogShim struct{ db *gorm.DB }

func (s notificationLogShim) InsertNotificationLog(ctx context.Context, l *domain.NotificationLog) error {
	return repo.InsertNotificationLog(ctx, s.db, l)
}

func (s notificationLogShim) List(ctx context.Context, orderID string, limit int) ([]domain.NotificationLog, error) {
	return repo.ListNotificationLogs(ctx, s.db, orderID, limit)
}

func (s notificationLogShim) Stats(ctx context.Context, orderID string) (int64, *time.Time, error) {
	return repo.NotificationLogStats(ctx, s.db, orderID)
}

// idempotencyShim stores order-creation keys with a fixed replay window.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyShim) Lookup(ctx context.Context, actor, clientID, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, actor, clientID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.OrderID, true, nil
}

func (s idempotencyShim) Remember(ctx context.Context, actor, clientID, key, orderID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, actor, clientID, key, orderID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// App holds the long-lived services shared by the routes, the background
// jobs and shutdown.
type App struct {
	Backend    *gorm.DB
	Cache      *gorm.DB
	Tracker    *services.Tracker
	Settings   *services.SettingsService
	Dispatcher *notify.Dispatcher

	logs notificationLogShim
	idem idempotencyShim
}

// NewApp wires the tracker, settings and dispatcher over the backend and
// cache databases. Nothing is loaded yet: call LoadState before serving.
func NewApp(cfg config.Config, backend, cache *gorm.DB, ch notify.Channel) (*App, error) {
	templates, err := notify.LoadTemplates(cfg.Notify.TemplatesPath)
	if err != nil {
		return nil, err
	}

	settings := &services.SettingsService{
		DB:       cache,
		Store:    kvShim{},
		Defaults: domain.DefaultSettings(templates),
	}

	tracker := &services.Tracker{
		DB:              backend,
		Repo:            clientRepoShim{},
		Cache:           &services.ClientCache{DB: cache, Store: kvShim{}},
		Settings:        settings,
		Policy:          domain.PolicyByName(cfg.TransitionPolicy),
		Timeout:         cfg.BackendTimeout,
		NotifyTimeout:   cfg.Notify.DispatchWindow,
		OfflineFallback: cfg.OfflineFallback,
	}

	logs := notificationLogShim{db: backend}
	templater := notify.NewTemplater(cfg.Notify.Locale)
	templater.EtaDays = cfg.Notify.EtaDays

	dispatcher := &notify.Dispatcher{
		Settings:  settings,
		Templater: templater,
		Channel:   ch,
		Recorder:  tracker,
		Log:       logs,
	}
	tracker.Notifier = dispatcher

	return &App{
		Backend:    backend,
		Cache:      cache,
		Tracker:    tracker,
		Settings:   settings,
		Dispatcher: dispatcher,
		logs:       logs,
		idem:       idempotencyShim{db: backend, ttl: cfg.IdempotencyTTL},
	}, nil
}

// LoadState reads the settings and the client collection. It returns where
// the clients came from (backend, cache or empty).
func (a *App) LoadState(ctx context.Context) (string, error) {
	a.Settings.Load(ctx)
	return a.Tracker.Load(ctx)
}

// PurgeIdempotency deletes expired order-creation keys.
func (a *App) PurgeIdempotency(ctx context.Context, now time.Time) (int64, error) {
	return repo.PurgeExpiredIdempotency(ctx, a.Backend, now)
}
