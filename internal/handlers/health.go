package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports whether the service and its database are reachable
func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	database := "ok"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status, code, database = "degraded", http.StatusServiceUnavailable, "unreachable"
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": database,
		"message":  "AnnoNest API is running",
	})
}
