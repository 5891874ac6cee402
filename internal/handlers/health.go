// internal/handlers/health.go
package handlers

import (
	"net/http"

	"genmon-backend/internal/database"
	"genmon-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	deps
}

func NewHealthHandler(db *database.DB, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{deps{db: db, log: log}}
}

// Check - проверка живости сервиса и соединения с БД
func (h *HealthHandler) Check(c *gin.Context) {
	if !h.databaseReady(c) {
		return
	}

	var one int
	if err := h.db.QueryRow("SELECT 1").Scan(&one); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Database connection failed",
			"message": errors.Cause(err).Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", Database: "connected"})
}
