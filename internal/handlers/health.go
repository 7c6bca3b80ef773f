package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	logger  *logrus.Logger
	engine  RecommendationEngine
	started time.Time
}

func NewHealthHandler(logger *logrus.Logger, engine RecommendationEngine) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		engine:  engine,
		started: time.Now(),
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := "healthy"
	if !h.engine.Trained() {
		// Serving before the first training pass still works, requests just
		// trigger a lazy fit.
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"trained": h.engine.Trained(),
		"uptime":  time.Since(h.started).String(),
	})
}
