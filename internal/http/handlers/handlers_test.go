package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// ---------- repo shims (like router.go) ----------

type testClientRepo struct{}

func (testClientRepo) ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	return repo.ListClients(ctx, db)
}
func (testClientRepo) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.CreateClient(ctx, db, c)
}
func (testClientRepo) UpdateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.UpdateClient(ctx, db, c)
}
func (testClientRepo) UpdateClientStatus(ctx context.Context, db *gorm.DB, id string, s domain.ClientStatus, now time.Time) error {
	return repo.UpdateClientStatus(ctx, db, id, s, now)
}
func (testClientRepo) DeleteClient(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteClient(ctx, db, id)
}
func (testClientRepo) CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.CreateOrder(ctx, db, o)
}
func (testClientRepo) SaveOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.SaveOrder(ctx, db, o)
}
func (testClientRepo) DeleteOrder(ctx context.Context, db *gorm.DB, clientID, orderID string) error {
	return repo.DeleteOrder(ctx, db, clientID, orderID)
}

type testKV struct{}

func (testKV) GetKV(ctx context.Context, db *gorm.DB, key string) (string, error) {
	return repo.GetKV(ctx, db, key)
}
func (testKV) PutKV(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	return repo.PutKV(ctx, db, key, value, now)
}

type testLogs struct{ db *gorm.DB }

func (l testLogs) List(ctx context.Context, orderID string, limit int) ([]domain.NotificationLog, error) {
	return repo.ListNotificationLogs(ctx, l.db, orderID, limit)
}
func (l testLogs) Stats(ctx context.Context, orderID string) (int64, *time.Time, error) {
	return repo.NotificationLogStats(ctx, l.db, orderID)
}
func (l testLogs) InsertNotificationLog(ctx context.Context, e *domain.NotificationLog) error {
	return repo.InsertNotificationLog(ctx, l.db, e)
}

type testIdem struct{ db *gorm.DB }

func (s testIdem) Lookup(ctx context.Context, actor, clientID, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, actor, clientID, key, now)
	if err != nil {
		return "", false, nil
	}
	return rec.OrderID, true, nil
}
func (s testIdem) Remember(ctx context.Context, actor, clientID, key, orderID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, actor, clientID, key, orderID, status, time.Hour)
	return err
}

// ---------- test environment ----------

type testEnv struct {
	r        *gin.Engine
	db       *gorm.DB
	tracker  *services.Tracker
	settings *services.SettingsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repo.AutoMigrateCache(db); err != nil {
		t.Fatalf("migrate cache: %v", err)
	}

	settings := &services.SettingsService{
		DB:       db,
		Store:    testKV{},
		Defaults: domain.DefaultSettings(notify.DefaultTemplates()),
	}
	settings.Load(ctx)

	tr := &services.Tracker{DB: db, Repo: testClientRepo{}, Settings: settings}
	tr.Notifier = &notify.Dispatcher{
		Settings:  settings,
		Templater: notify.NewTemplater(language.MustParse("es-AR")),
		Channel:   notify.LinkChannel{},
		Recorder:  tr,
		Log:       testLogs{db},
	}
	if _, err := tr.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() {
		tr.Wait()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := New(tr, settings, testLogs{db}, testIdem{db})
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	registerTestRoutes(r.Group("/api/v1"), h)
	return &testEnv{r: r, db: db, tracker: tr, settings: settings}
}

func registerTestRoutes(api *gin.RouterGroup, h *Handlers) {
	api.GET("/clients", h.ListClients)
	api.POST("/clients", h.CreateClient)
	api.GET("/clients/:id", h.GetClient)
	api.PUT("/clients/:id", h.UpdateClient)
	api.DELETE("/clients/:id", h.DeleteClient)
	api.POST("/clients/:id/orders", h.CreateOrder)
	api.GET("/clients/:id/orders/:orderId", h.GetOrder)
	api.PUT("/clients/:id/orders/:orderId", h.UpdateOrder)
	api.DELETE("/clients/:id/orders/:orderId", h.DeleteOrder)
	api.PATCH("/clients/:id/orders/:orderId/status", h.AdvanceStatus)
	api.POST("/clients/:id/orders/:orderId/notify", h.ResendNotification)
	api.GET("/statuses", h.ListStatuses)
	api.GET("/stats", h.GetStats)
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)
	api.GET("/notifications", h.ListNotifications)
}

func (e *testEnv) do(t *testing.T, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

const validClient = `{"name":"Maria Gonzalez","email":"maria@example.com","phone":"+54 9 11 5555-1234"}`

func (e *testEnv) createClient(t *testing.T) domain.Client {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/clients", validClient)
	if w.Code != http.StatusCreated {
		t.Fatalf("create client: %d %s", w.Code, w.Body.String())
	}
	return decode[domain.Client](t, w)
}

func (e *testEnv) createOrder(t *testing.T, clientID string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/clients/"+clientID+"/orders",
		`{"productDescription":"Zapatillas","store":"Amazon","trackingNumber":"1Z999"}`, hdr...)
}

// ---------- stub tracker for failure paths ----------

type failingTracker struct {
	Tracker
	err error
}

func (f failingTracker) CreateClient(ctx context.Context, in services.ClientInput) (domain.Client, error) {
	return domain.Client{}, f.err
}

func httptestJSON(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
