package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func TestListStatuses(t *testing.T) {
	env := newTestEnv(t)

	cat := decode[StatusCatalog](t, env.do(t, http.MethodGet, "/api/v1/statuses", ""))
	if len(cat.ShippingStatuses) != 5 || len(cat.ClientStatuses) != 3 {
		t.Fatalf("unexpected catalog: %+v", cat)
	}
	first, last := cat.ShippingStatuses[0], cat.ShippingStatuses[4]
	if first.Value != domain.StatusPurchased || first.Next != domain.StatusShippedToWarehouse || first.Label != "Comprado" {
		t.Fatalf("first: %+v", first)
	}
	if !last.Terminal || last.Next != "" {
		t.Fatalf("last: %+v", last)
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t)
	cl := env.createClient(t)
	env.createOrder(t, cl.ID)

	st := decode[domain.Stats](t, env.do(t, http.MethodGet, "/api/v1/stats", ""))
	if st.TotalClients != 1 || st.ActiveClients != 1 || st.TotalOrders != 1 || st.PendingOrders != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
