package main

import (
	"database/sql"
	"net/http"
	"time"

	"results-hotline/internal/audit"
	"results-hotline/internal/callflow"
	"results-hotline/internal/clinic"
	"results-hotline/internal/httpapi"
	"results-hotline/internal/ivr"
	"results-hotline/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// turnWebhookPath receives every Twilio voice turn, including the initial
// inbound call.
const turnWebhookPath = "/webhooks/twilio/turn"

type routeDeps struct {
	machine *callflow.Machine
	repo    clinic.Repository
	audit   *audit.Service
	db      *sql.DB
	rdb     *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: This endpoint should be protected by Twilio signature validation in production.
	{
		h := ivr.TurnWebhookHandler{
			Machine:    deps.machine,
			ActionPath: turnWebhookPath,
		}
		r.POST(turnWebhookPath, h.HandleTurn)
	}

	// ADMIN routes.
	// NOTE: Deploy behind network-level access control; staff auth is out of
	// scope for this service.
	admin := r.Group("/admin")
	{
		h := httpapi.NewHandlers(deps.repo, deps.audit)

		admin.POST("/clinics", h.CreateClinic)
		admin.PUT("/clinics/:id", h.UpdateClinic)
		admin.DELETE("/clinics/:id", h.DeleteClinic)
		admin.GET("/clinics", h.ListClinics)
		admin.POST("/visits", h.CreateVisit)
	}
}
