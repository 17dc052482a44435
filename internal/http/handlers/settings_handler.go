package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSettings godoc
// @ID          getSettings
// @Summary     Get WhatsApp settings
// @Tags        Settings
// @Produce     json
// @Success     200  {object} domain.WhatsAppSettings
// @Router      /settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	ok(c, http.StatusOK, h.settings.Get())
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Replace WhatsApp settings
// @Description Whole-object replace. Missing fields take their defaults and templates for statuses absent from messageTemplates are filled from the default set.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Param       body  body     domain.WhatsAppSettings  true  "Settings"
// @Success     200   {object} domain.WhatsAppSettings
// @Failure     400   {object} handlers.ErrorResponse "Invalid settings"
// @Failure     503   {object} handlers.ErrorResponse "Cache unavailable"
// @Router      /settings [put]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	s, err := h.settings.Update(c.Request.Context(), raw)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}
