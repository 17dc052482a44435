// Notification HTTP handlers.
//
//   - POST /clients/{id}/orders/{orderId}/notify  (manual resend)
//   - GET  /notifications                         (dispatch outcome log, ETag support)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/utils"
)

// ListNotificationsResponse wraps recorded dispatch outcomes, newest first.
type ListNotificationsResponse struct {
	Notifications []domain.NotificationLog `json:"notifications"`
}

// ResendNotification godoc
// @ID          resendNotification
// @Summary     Send the WhatsApp notification for an order's current status
// @Description Renders the template for the current status and hands it off synchronously. Ignores autoNotify; fails with 409 when notifications are disabled.
// @Tags        Notifications
// @Produce     json
// @Param       id       path     string  true  "Client ID"
// @Param       orderId  path     string  true  "Order ID"
// @Success     200  {object} notify.Outcome
// @Failure     404  {object} handlers.ErrorResponse "Client or order not found"
// @Failure     409  {object} handlers.ErrorResponse "Notifications disabled"
// @Failure     422  {object} handlers.ErrorResponse "Client phone unusable"
// @Failure     502  {object} handlers.ErrorResponse "Channel hand-off failed"
// @Router      /clients/{id}/orders/{orderId}/notify [post]
func (h *Handlers) ResendNotification(c *gin.Context) {
	out, err := h.tracker.Resend(c.Request.Context(), c.Param("id"), c.Param("orderId"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List notification outcomes
// @Description Returns recorded dispatch outcomes (successes and failures), newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Notifications
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       orderId        query   string  false "Only outcomes for this order"
// @Param       limit          query   int     false "Maximum entries"  minimum(1) maximum(200) default(50)
// @Success     200  {object} handlers.ListNotificationsResponse
// @Header      200  {string} ETag  "Weak ETag for the current log"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	const (
		defaultLimit = 50
		maxLimit     = 200
	)
	limit := utils.BoundedInt(c.Query("limit"), defaultLimit, 1, maxLimit)
	orderID := strings.TrimSpace(c.Query("orderId"))

	if h.logs == nil {
		ok(c, http.StatusOK, ListNotificationsResponse{Notifications: []domain.NotificationLog{}})
		return
	}

	ctx := c.Request.Context()
	// ETag pre-check (best effort).
	if count, latest, err := h.logs.Stats(ctx, orderID); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		if notModified(c, fmt.Sprintf(`W/"notifications:%s:%d:%d"`, orderID, count, ts)) {
			return
		}
	}

	items, err := h.logs.List(ctx, orderID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if items == nil {
		items = []domain.NotificationLog{}
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items})
}
