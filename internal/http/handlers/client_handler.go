// Client HTTP handlers.
//
//   - GET    /clients        (search/filter, paginated, ETag support)
//   - POST   /clients        (create)
//   - GET    /clients/{id}
//   - PUT    /clients/{id}   (replace contact fields)
//   - DELETE /clients/{id}   (cascades to orders)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// ClientRequest is the JSON payload for creating or updating a client.
type ClientRequest struct {
	// Name is required, at most 120 characters.
	Name string `json:"name" example:"María González"`
	// Email is optional but must be well-formed when present.
	Email string `json:"email" example:"maria@example.com"`
	// Phone needs at least 5 digits; + - ( ) and spaces are allowed.
	Phone string `json:"phone" example:"+54 9 11 5555-1234"`
}

func (r ClientRequest) input() services.ClientInput {
	return services.ClientInput{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

// ListClientsResponse wraps a page of clients and pagination information.
type ListClientsResponse struct {
	Clients    []domain.Client `json:"clients"`
	Pagination Pagination      `json:"pagination"`
}

// ListClients godoc
// @ID          listClients
// @Summary     List clients (search, filter, paginated)
// @Description Returns a page of clients. q matches name, email, phone, product, store and tracking number; results are then ranked by relevance. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Clients
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"clients:12\")
// @Param       q              query   string  false "Free-text search"
// @Param       status         query   string  false "Client status"  Enums(pending, active, finished)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListClientsResponse
// @Header      200  {string} ETag  "Weak ETag for the current snapshot"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /clients [get]
func (h *Handlers) ListClients(c *gin.Context) {
	status := domain.ClientStatus(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		failField(c, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("status: unknown value %q", string(status)), "status")
		return
	}
	page, pageSize := clampPagination(c)

	// Version is read before the snapshot so a concurrent write can only
	// make the ETag stale, never wrong.
	if notModified(c, fmt.Sprintf(`W/"clients:%d"`, h.tracker.Version())) {
		return
	}

	all := h.tracker.List(services.ListFilter{Query: c.Query("q"), Status: status})
	items, p := paginate(all, page, pageSize)
	ok(c, http.StatusOK, ListClientsResponse{Clients: items, Pagination: p})
}

// CreateClient godoc
// @ID          createClient
// @Summary     Create a client
// @Description Creates a client with status pending and no orders.
// @Tags        Clients
// @Accept      json
// @Produce     json
// @Param       body  body     handlers.ClientRequest  true  "Client"
// @Success     201   {object} domain.Client
// @Failure     400   {object} handlers.ErrorResponse "Invalid input"
// @Failure     503   {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients [post]
func (h *Handlers) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cl, err := h.tracker.CreateClient(c.Request.Context(), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cl)
}

// GetClient godoc
// @ID          getClient
// @Summary     Get a client
// @Tags        Clients
// @Produce     json
// @Param       id   path     string  true  "Client ID"
// @Success     200  {object} domain.Client
// @Failure     404  {object} handlers.ErrorResponse "Client not found"
// @Router      /clients/{id} [get]
func (h *Handlers) GetClient(c *gin.Context) {
	cl, err := h.tracker.Get(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cl)
}

// UpdateClient godoc
// @ID          updateClient
// @Summary     Update a client
// @Description Replaces name, email and phone. Status and orders are untouched.
// @Tags        Clients
// @Accept      json
// @Produce     json
// @Param       id    path     string                  true  "Client ID"
// @Param       body  body     handlers.ClientRequest  true  "Client"
// @Success     200   {object} domain.Client
// @Failure     400   {object} handlers.ErrorResponse "Invalid input"
// @Failure     404   {object} handlers.ErrorResponse "Client not found"
// @Failure     503   {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id} [put]
func (h *Handlers) UpdateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cl, err := h.tracker.UpdateClient(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cl)
}

// DeleteClient godoc
// @ID          deleteClient
// @Summary     Delete a client and its orders
// @Tags        Clients
// @Param       id   path    string  true  "Client ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Client not found"
// @Failure     503  {object} handlers.ErrorResponse "Backend unavailable"
// @Router      /clients/{id} [delete]
func (h *Handlers) DeleteClient(c *gin.Context) {
	if err := h.tracker.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
