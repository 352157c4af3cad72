package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loanterms/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	termsService service.TermsService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(termsService service.TermsService) *HealthHandler {
	return &HealthHandler{termsService: termsService}
}

// Liveness handles GET /healthz
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Process is up"
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness check
// @Description Reports whether the record store is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Ready"
// @Failure 503 {object} map[string]string "Record store not reachable"
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.termsService.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "record store not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
