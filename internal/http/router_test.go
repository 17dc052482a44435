package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/handlers"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:      "/api/v1",
		RateRPS:          100,
		RateBurst:        50,
		BackendTimeout:   2 * time.Second,
		TransitionPolicy: config.PolicyPermissive,
		IdempotencyTTL:   time.Hour,
		OTEL:             config.OTELConfig{ServiceName: "test-svc"},
		Notify: config.NotifyConfig{
			Channel: config.ChannelLink,
			Locale:  language.MustParse("es-AR"),
			EtaDays: 7,
		},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	backend := newTestDB(t, "backend.db")
	cache := newTestDB(t, "cache.db")
	if err := repo.AutoMigrate(backend); err != nil {
		t.Fatalf("migrate backend: %v", err)
	}
	if err := repo.AutoMigrateCache(cache); err != nil {
		t.Fatalf("migrate cache: %v", err)
	}
	app, err := NewApp(cfg, backend, cache, notify.LinkChannel{})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if _, err := app.LoadState(context.Background()); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	t.Cleanup(app.Tracker.Wait)
	return app
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *App) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app := newTestApp(t, cfg)
	r := gin.New()
	RegisterRoutes(r, app, cfg)
	return r, app
}

func serve(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != middleware.APIContentSecurityPolicy {
		t.Fatalf("CSP = %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}
	if w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("/metrics must not be compressed without Accept-Encoding")
	}

	w = serve(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	var env handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || env.Code != handlers.ErrCodeNotFound {
		t.Fatalf("404 envelope = %+v err=%v", env, err)
	}

	w = serve(r, http.MethodPost, "/health", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newTestRouter(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", "", "Origin", "http://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be echoed, got %q", got)
	}

	if w := serve(r, http.MethodGet, "/api/v2/statuses", ""); w.Code != http.StatusOK {
		t.Fatalf("API must mount under the configured base path, got %d", w.Code)
	}
}

func TestRegisterRoutes_GzipOnAPI(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := serve(r, http.MethodGet, "/api/v1/statuses", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /statuses = %d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRouter(t, cfg)
	if w := serve(r, http.MethodGet, "/swagger/index.html", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: expected 404, got %d", w.Code)
	}

	cfg.SwaggerEnabled = true
	r, _ = newTestRouter(t, cfg)
	w := serve(r, http.MethodGet, "/swagger/index.html", "")
	if w.Code != http.StatusOK {
		t.Fatalf("swagger enabled: expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != "" {
		t.Fatalf("swagger UI must be exempt from the API CSP, got %q", got)
	}
}

func TestRegisterRoutes_OrderCreationReplay(t *testing.T) {
	r, app := newTestRouter(t, testConfig())

	w := serve(r, http.MethodPost, "/api/v1/clients",
		`{"name":"Maria Gonzalez","email":"maria@example.com","phone":"+54 9 11 5555-1234"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create client: %d %s", w.Code, w.Body.String())
	}
	var c domain.Client
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode client: %v", err)
	}

	body := `{"productDescription":"Zapatillas","store":"Amazon"}`
	path := "/api/v1/clients/" + c.ID + "/orders"
	first := serve(r, http.MethodPost, path, body, middleware.HeaderIdempotencyKey, "order-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: %d %s", first.Code, first.Body.String())
	}
	second := serve(r, http.MethodPost, path, body, middleware.HeaderIdempotencyKey, "order-1")
	if second.Code != http.StatusOK {
		t.Fatalf("replay: %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get(handlers.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay header missing")
	}

	var o1, o2 domain.Order
	_ = json.Unmarshal(first.Body.Bytes(), &o1)
	_ = json.Unmarshal(second.Body.Bytes(), &o2)
	if o1.ID == "" || o1.ID != o2.ID {
		t.Fatalf("replay must return the stored order: %q vs %q", o1.ID, o2.ID)
	}
	got, err := app.Tracker.Get(c.ID)
	if err != nil || len(got.Orders) != 1 {
		t.Fatalf("expected one order after replay, got %+v err=%v", got.Orders, err)
	}

	bad := serve(r, http.MethodPost, path, body, middleware.HeaderIdempotencyKey, "has space")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("malformed key: expected 400, got %d", bad.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestNewApp_BadTemplatesPath(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.TemplatesPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewApp(cfg, nil, nil, notify.LinkChannel{}); err == nil {
		t.Fatalf("expected error for unreadable templates file")
	}
}

func TestShims_Proxies(t *testing.T) {
	db := newTestDB(t, "shim.db")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repo.AutoMigrateCache(db); err != nil {
		t.Fatalf("migrate cache: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	// clients
	cr := clientRepoShim{}
	cl := &domain.Client{ID: "c-1", Name: "Ana", Phone: "1122334455", Status: domain.ClientPending}
	if err := cr.CreateClient(ctx, db, cl); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	all, err := cr.ListClients(ctx, db)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListClients: %v len=%d", err, len(all))
	}
	if err := cr.UpdateClientStatus(ctx, db, "c-1", domain.ClientActive, now); err != nil {
		t.Fatalf("UpdateClientStatus: %v", err)
	}

	// kv
	kv := kvShim{}
	if err := kv.PutKV(ctx, db, "k", "v", now); err != nil {
		t.Fatalf("PutKV: %v", err)
	}
	if v, err := kv.GetKV(ctx, db, "k"); err != nil || v != "v" {
		t.Fatalf("GetKV = %q, %v", v, err)
	}

	// notification logs
	logs := notificationLogShim{db: db}
	if err := logs.InsertNotificationLog(ctx, &domain.NotificationLog{
		ID: "n-1", ClientID: "c-1", OrderID: "o-1", Status: domain.StatusPurchased,
		Channel: notify.ChannelLink, Message: "hola", Success: true, CreatedAt: now,
	}); err != nil {
		t.Fatalf("InsertNotificationLog: %v", err)
	}
	rows, err := logs.List(ctx, "o-1", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("List: %v len=%d", err, len(rows))
	}
	n, latest, err := logs.Stats(ctx, "o-1")
	if err != nil || n != 1 || latest == nil {
		t.Fatalf("Stats = %d %v %v", n, latest, err)
	}

	// idempotency
	idem := idempotencyShim{db: db, ttl: time.Hour}
	if _, found, err := idem.Lookup(ctx, "ip:1.2.3.4", "c-1", "k1", now); err != nil || found {
		t.Fatalf("Lookup miss = %v %v", found, err)
	}
	if err := idem.Remember(ctx, "ip:1.2.3.4", "c-1", "k1", "o-1", http.StatusCreated); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := idem.Remember(ctx, "ip:1.2.3.4", "c-1", "k1", "o-2", http.StatusCreated); err != nil {
		t.Fatalf("Remember duplicate must be absorbed: %v", err)
	}
	orderID, found, err := idem.Lookup(ctx, "ip:1.2.3.4", "c-1", "k1", now)
	if err != nil || !found || orderID != "o-1" {
		t.Fatalf("Lookup hit = %q %v %v", orderID, found, err)
	}
}

func TestApp_PurgeIdempotency(t *testing.T) {
	app := newTestApp(t, testConfig())
	ctx := context.Background()
	if err := app.idem.Remember(ctx, "ip:x", "c-1", "k", "o-1", http.StatusCreated); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	n, err := app.PurgeIdempotency(ctx, time.Now().Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("PurgeIdempotency = %d, %v", n, err)
	}
}
