// Package api exposes discovery over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/ramkansal/sitescout/internal/discovery"
)

// Discoverer runs one discovery call.
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) discovery.Result
}

// RouteRegistrar is anything that can wire its routes into a gin group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Handler serves POST /discover.
type Handler struct {
	orch   Discoverer
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewHandler bounds concurrent discoveries at maxConcurrent (at least one).
func NewHandler(orch Discoverer, maxConcurrent int, logger *slog.Logger) *Handler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orch:   orch,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/discover", h.Discover)
}

// Discover answers 200 with the result payload for any well-formed body.
// Discovery failures travel in the payload's error field.
func (h *Handler) Discover(c *gin.Context) {
	var req discovery.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	if err := h.sem.Acquire(ctx, 1); err != nil {
		msg := "request cancelled while queued: " + err.Error()
		c.JSON(http.StatusOK, discovery.Result{BaseURL: req.RootURL, DebugLogs: []string{}, Error: &msg})
		return
	}
	defer h.sem.Release(1)

	res := h.orch.Discover(ctx, req)
	h.logger.Info("discovery served",
		"request_id", RequestID(c),
		"root_url", req.RootURL,
		"total", res.TotalCount,
		"failed", res.Error != nil,
	)
	c.JSON(http.StatusOK, res)
}

// NewRouter builds the engine with recovery, request ids, request logging,
// a health check and the v1 routes.
func NewRouter(logger *slog.Logger, regs ...RouteRegistrar) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	for _, reg := range regs {
		reg.RegisterRoutes(v1)
	}
	return r
}
