package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mansoora/rehaish/internal/middleware"
	"github.com/mansoora/rehaish/internal/repository"
	"github.com/mansoora/rehaish/internal/search"
)

// APIVersion is the current version of the API
const APIVersion = "0.1.0"

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	repo      repository.ListingRepository
	index     search.Synchronizer
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(repo repository.ListingRepository, index search.Synchronizer, env string) *HealthHandler {
	return &HealthHandler{
		repo:      repo,
		index:     index,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response. The listing and
// index counts are reported so a diverged index is visible from outside.
type ReadyResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Listings int    `json:"listings"`
	Indexed  int    `json:"indexed"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

// Health handles GET /health endpoint.
// This is a basic health check that always returns 200 OK.
// It does not check any dependencies and is used for basic liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Readiness requires a scannable record store and a search index whose entry
// count matches the store. A mismatch means a failed upsert or rebuild left
// the index behind, so search answers may omit listings until the next
// rebuild heals it.
func (h *HealthHandler) Ready(c *gin.Context) {
	listings, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Record store health check failed", err, nil)
		}

		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:  "not_ready",
			Store:   "unreadable",
			Indexed: h.index.Len(),
		})
		return
	}

	indexed := h.index.Len()
	if indexed != len(listings) {
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Search index diverged from record store", map[string]interface{}{
				"listings": len(listings),
				"indexed":  indexed,
			})
		}

		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:   "not_ready",
			Store:    "ok",
			Listings: len(listings),
			Indexed:  indexed,
		})
		return
	}

	c.JSON(http.StatusOK, ReadyResponse{
		Status:   "ready",
		Store:    "ok",
		Listings: len(listings),
		Indexed:  indexed,
	})
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, and uptime.
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(uptime),
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
