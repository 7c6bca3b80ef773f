package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RecommendationHandler struct {
	engine RecommendationEngine
	logger *logrus.Logger
}

func NewRecommendationHandler(engine RecommendationEngine, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		engine: engine,
		logger: logger,
	}
}

// Get returns the full recommendation record for one student.
func (h *RecommendationHandler) Get(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_STUDENT_ID",
				"message": "Student ID must not be empty",
			},
		})
		return
	}

	record, err := h.engine.RecommendForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.logger.WithError(err).WithField("student_id", studentID).Error("Recommendation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Train forces a full training pass.
func (h *RecommendationHandler) Train(c *gin.Context) {
	if err := h.engine.TrainModels(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Training request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "TRAINING_FAILED",
				"message": "Model training failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "trained"})
}

// Batch computes and persists recommendations for every student.
func (h *RecommendationHandler) Batch(c *gin.Context) {
	n, err := h.engine.BatchRecommendations(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Batch recommendation request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "BATCH_FAILED",
				"message": "Batch recommendation run failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "students": n})
}

// ClearCache drops all cached per-student results.
func (h *RecommendationHandler) ClearCache(c *gin.Context) {
	h.engine.ClearCache(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
