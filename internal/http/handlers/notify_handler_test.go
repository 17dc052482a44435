package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
)

func TestResendNotification_DisabledThenSent(t *testing.T) {
	env := newTestEnv(t)
	cl := env.createClient(t)
	o := decode[domain.Order](t, env.createOrder(t, cl.ID))
	path := "/api/v1/clients/" + cl.ID + "/orders/" + o.ID + "/notify"

	if w := env.do(t, http.MethodPut, "/api/v1/settings", `{"notificationsEnabled":false}`); w.Code != http.StatusOK {
		t.Fatalf("disable: %d %s", w.Code, w.Body.String())
	}
	w := env.do(t, http.MethodPost, path, "")
	if w.Code != http.StatusConflict || decode[ErrorResponse](t, w).Code != ErrCodeConflict {
		t.Fatalf("disabled resend: %d %s", w.Code, w.Body.String())
	}

	// autoNotify off still allows a manual resend
	if w := env.do(t, http.MethodPut, "/api/v1/settings", `{"notificationsEnabled":true,"autoNotify":false}`); w.Code != http.StatusOK {
		t.Fatalf("enable: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("resend: %d %s", w.Code, w.Body.String())
	}
	out := decode[notify.Outcome](t, w)
	if !out.Success || out.Status != domain.StatusPurchased || !strings.HasPrefix(out.Handoff.Link, "https://wa.me/") {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !strings.Contains(out.Message, "Maria Gonzalez") {
		t.Fatalf("message not rendered for client: %q", out.Message)
	}

	got := decode[domain.Client](t, env.do(t, http.MethodGet, "/api/v1/clients/"+cl.ID, ""))
	if entry, _ := got.Orders[0].CurrentEntry(); !entry.NotificationSent {
		t.Fatalf("resend did not flag the entry")
	}

	if w := env.do(t, http.MethodPost, "/api/v1/clients/"+cl.ID+"/orders/missing/notify", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing order: %d", w.Code)
	}
}

func TestListNotifications_ETagAndLimit(t *testing.T) {
	env := newTestEnv(t)
	cl := env.createClient(t)
	o := decode[domain.Order](t, env.createOrder(t, cl.ID))
	path := "/api/v1/clients/" + cl.ID + "/orders/" + o.ID + "/notify"

	w := env.do(t, http.MethodGet, "/api/v1/notifications", "")
	if w.Code != http.StatusOK || len(decode[ListNotificationsResponse](t, w).Notifications) != 0 {
		t.Fatalf("empty log: %d %s", w.Code, w.Body.String())
	}
	emptyTag := w.Header().Get("ETag")

	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodPost, path, ""); w.Code != http.StatusOK {
			t.Fatalf("resend %d: %d", i, w.Code)
		}
	}

	w = env.do(t, http.MethodGet, "/api/v1/notifications?limit=1", "")
	if got := decode[ListNotificationsResponse](t, w); len(got.Notifications) != 1 {
		t.Fatalf("limit: %d entries", len(got.Notifications))
	}
	etag := w.Header().Get("ETag")
	if etag == "" || etag == emptyTag {
		t.Fatalf("etag did not change: %q", etag)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/notifications?limit=1", "", "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional: %d", w.Code)
	}
}

func TestListNotifications_WithoutLogStore(t *testing.T) {
	env := newTestEnv(t)
	h := New(env.tracker, env.settings, nil, nil)
	registerTestRoutes(env.r.Group("/bare"), h)

	w := env.do(t, http.MethodGet, "/bare/notifications", "")
	if w.Code != http.StatusOK || len(decode[ListNotificationsResponse](t, w).Notifications) != 0 {
		t.Fatalf("nil log store: %d %s", w.Code, w.Body.String())
	}
}
