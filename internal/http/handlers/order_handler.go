// Order HTTP handlers.
//
//   - POST   /clients/{id}/orders                      (create, Idempotency-Key aware)
//   - GET    /clients/{id}/orders/{orderId}
//   - PUT    /clients/{id}/orders/{orderId}            (descriptive fields, optional status)
//   - DELETE /clients/{id}/orders/{orderId}
//   - PATCH  /clients/{id}/orders/{orderId}/status     (advance status)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// HeaderIdempotencyReplayed marks a response served from an earlier request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// OrderRequest is the JSON payload for creating or updating an order.
type OrderRequest struct {
	ProductDescription string `json:"productDescription" example:"Zapatillas running talle 42"`
	Store              string `json:"store"              example:"Amazon"`
	TrackingNumber     string `json:"trackingNumber"     example:"1Z999AA10123456784"`
	// Status is ignored on create. On update a value different from the
	// order's current status advances it.
	Status string `json:"status,omitempty" example:"shipped_to_warehouse"`
}

func (r OrderRequest) input() services.OrderInput {
	return services.OrderInput{
		ProductDescription: r.ProductDescription,
		Store:              r.Store,
		TrackingNumber:     r.TrackingNumber,
	}
}

// StatusRequest is the JSON payload for advancing an order.
type StatusRequest struct {
	Status string `json:"status" example:"arrived_in_argentina"`
}

// CreateOrder godoc
// @ID          createOrder
// @Summary     Create an order for a client
// @Description Creates an order with status purchased. A pending client becomes active. With an Idempotency-Key the first created order is replayed with 200 and Idempotency-Replayed: true.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                 false "Idempotency key"  example(order-7f3c)
// @Param       id               path    string                 true  "Client ID"
// @Param       body             body    handlers.OrderRequest  true  "Order"
// @Success     201  {object} domain.Order
// @Success     200  {object} domain.Order "Replayed"
// @Failure     400  {object} handlers.ErrorResponse "Invalid input"
// @Failure     404  {object} handlers.ErrorResponse "Client not found"
// @Failure     409  {object} handlers.ErrorResponse "Key reused after the order was deleted"
// @Failure     503  {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id}/orders [post]
func (h *Handlers) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := c.Param("id")
	actor := middleware.Actor(c)
	key, hasKey := middleware.GetIdempotencyKey(c)
	hasKey = hasKey && h.idem != nil

	if hasKey {
		orderID, found, err := h.idem.Lookup(ctx, actor, clientID, key, h.now())
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
		if found {
			_, o, gerr := h.tracker.GetOrder(clientID, orderID)
			if gerr != nil {
				fail(c, http.StatusConflict, ErrCodeConflict, "order created with this Idempotency-Key no longer exists")
				return
			}
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, o)
			return
		}
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	o, err := h.tracker.AddOrder(ctx, clientID, req.input())
	if err != nil {
		failErr(c, err)
		return
	}

	if hasKey {
		if err := h.idem.Remember(ctx, actor, clientID, key, o.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("order_id", o.ID).Msg("idempotency record not saved")
		}
	}
	ok(c, http.StatusCreated, o)
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Get an order
// @Tags        Orders
// @Produce     json
// @Param       id       path     string  true  "Client ID"
// @Param       orderId  path     string  true  "Order ID"
// @Success     200  {object} domain.Order
// @Failure     404  {object} handlers.ErrorResponse "Client or order not found"
// @Router      /clients/{id}/orders/{orderId} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	_, o, err := h.tracker.GetOrder(c.Param("id"), c.Param("orderId"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// UpdateOrder godoc
// @ID          updateOrder
// @Summary     Update an order
// @Description Replaces productDescription, store and trackingNumber. A status different from the current one is applied as a status change.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       id       path     string                 true  "Client ID"
// @Param       orderId  path     string                 true  "Order ID"
// @Param       body     body     handlers.OrderRequest  true  "Order"
// @Success     200  {object} domain.Order
// @Failure     400  {object} handlers.ErrorResponse "Invalid input"
// @Failure     404  {object} handlers.ErrorResponse "Client or order not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition rejected"
// @Failure     503  {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id}/orders/{orderId} [put]
func (h *Handlers) UpdateOrder(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	o, err := h.tracker.UpdateOrder(c.Request.Context(), c.Param("id"), c.Param("orderId"),
		req.input(), domain.ShippingStatus(req.Status))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// DeleteOrder godoc
// @ID          deleteOrder
// @Summary     Delete an order
// @Description Removes the order and recomputes the client's status.
// @Tags        Orders
// @Param       id       path    string  true  "Client ID"
// @Param       orderId  path    string  true  "Order ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Client or order not found"
// @Failure     503  {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id}/orders/{orderId} [delete]
func (h *Handlers) DeleteOrder(c *gin.Context) {
	if err := h.tracker.DeleteOrder(c.Request.Context(), c.Param("id"), c.Param("orderId")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// AdvanceStatus godoc
// @ID          advanceOrderStatus
// @Summary     Change an order's shipping status
// @Description Sets the status, appends a history entry for a status not seen before and recomputes the client status. When auto-notify is on, the WhatsApp notification is dispatched in the background.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       id       path     string                  true  "Client ID"
// @Param       orderId  path     string                  true  "Order ID"
// @Param       body     body     handlers.StatusRequest  true  "New status"
// @Success     200  {object} domain.Order
// @Failure     400  {object} handlers.ErrorResponse "Unknown status"
// @Failure     404  {object} handlers.ErrorResponse "Client or order not found"
// @Failure     409  {object} handlers.ErrorResponse "Transition rejected"
// @Failure     503  {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id}/orders/{orderId}/status [patch]
func (h *Handlers) AdvanceStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	o, err := h.tracker.AdvanceStatus(c.Request.Context(), c.Param("id"), c.Param("orderId"),
		domain.ShippingStatus(req.Status))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}
