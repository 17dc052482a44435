package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// StatusInfo describes one shipping status for the dashboard's pickers.
type StatusInfo struct {
	Value domain.ShippingStatus `json:"value" example:"purchased"`
	Label string                `json:"label" example:"Comprado"`
	// Next is the advisory successor; empty for the terminal status.
	Next     domain.ShippingStatus `json:"next,omitempty" example:"shipped_to_warehouse"`
	Terminal bool                  `json:"terminal"`
}

// ClientStatusInfo describes one client status.
type ClientStatusInfo struct {
	Value domain.ClientStatus `json:"value" example:"active"`
	Label string              `json:"label" example:"Activo"`
}

// StatusCatalog lists shipping statuses in lifecycle order and client
// statuses.
type StatusCatalog struct {
	ShippingStatuses []StatusInfo       `json:"shippingStatuses"`
	ClientStatuses   []ClientStatusInfo `json:"clientStatuses"`
}

// ListStatuses godoc
// @ID          listStatuses
// @Summary     Status catalog
// @Description Shipping statuses in lifecycle order with labels and advisory successors, plus client statuses.
// @Tags        Catalog
// @Produce     json
// @Success     200  {object} handlers.StatusCatalog
// @Router      /statuses [get]
func (h *Handlers) ListStatuses(c *gin.Context) {
	var cat StatusCatalog
	for _, s := range domain.ShippingStatuses() {
		next, _ := domain.NextStatus(s)
		cat.ShippingStatuses = append(cat.ShippingStatuses, StatusInfo{
			Value:    s,
			Label:    s.Label(),
			Next:     next,
			Terminal: s.Terminal(),
		})
	}
	for _, s := range []domain.ClientStatus{domain.ClientPending, domain.ClientActive, domain.ClientFinished} {
		cat.ClientStatuses = append(cat.ClientStatuses, ClientStatusInfo{Value: s, Label: s.Label()})
	}
	c.Header("Cache-Control", "public, max-age=3600")
	ok(c, http.StatusOK, cat)
}

// GetStats godoc
// @ID          getStats
// @Summary     Dashboard counters
// @Tags        Catalog
// @Produce     json
// @Success     200  {object} domain.Stats
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	ok(c, http.StatusOK, h.tracker.Stats())
}
