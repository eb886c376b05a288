package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prodboard/database"
	"prodboard/server/services"
)

// DashboardHandler обработчик сводной статистики и health check
type DashboardHandler struct {
	db        *database.PlantDB
	dashboard *services.DashboardService
	startedAt time.Time
}

// NewDashboardHandler создает новый обработчик дашборда
func NewDashboardHandler(db *database.PlantDB, dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		db:        db,
		dashboard: dashboard,
		startedAt: time.Now(),
	}
}

// HandleStats возвращает сводную статистику парка станков
// @Summary Статистика дашборда
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{} "Сводная статистика"
// @Router /api/dashboard/stats [get]
func (h *DashboardHandler) HandleStats(c *gin.Context) {
	stats, err := h.dashboard.GetStats()
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, stats)
}

// HandleHealth проверяет доступность сервиса и БД
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{} "Состояние сервиса"
// @Router /health [get]
func (h *DashboardHandler) HandleHealth(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"

	if err := h.db.Ping(); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	SendJSONResponse(c, code, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.startedAt).String(),
	})
}
