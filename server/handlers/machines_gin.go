package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prodboard/database"
	apperrors "prodboard/server/errors"
)

// MachineHandler обработчик для работы со станками
type MachineHandler struct {
	db *database.PlantDB
}

// NewMachineHandler создает новый обработчик станков
func NewMachineHandler(db *database.PlantDB) *MachineHandler {
	return &MachineHandler{db: db}
}

// machineSummary представление станка в списке (без массива журналов)
type machineSummary struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Brand   string                `json:"brand"`
	Aliases []string              `json:"aliases,omitempty"`
	Current database.MachineState `json:"current"`
	LogDays int                   `json:"log_days"`
}

// HandleMachinesList возвращает список станков с текущим состоянием
// @Summary Список станков
// @Description Возвращает все станки с денормализованным текущим состоянием
// @Tags machines
// @Produce json
// @Success 200 {object} map[string]interface{} "Список станков"
// @Router /api/machines [get]
func (h *MachineHandler) HandleMachinesList(c *gin.Context) {
	machines, err := h.db.GetAllMachines()
	if err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось получить список станков", err))
		return
	}

	summaries := make([]machineSummary, 0, len(machines))
	for _, m := range machines {
		summaries = append(summaries, machineSummary{
			ID:      m.ID,
			Name:    m.Name,
			Brand:   m.Brand,
			Aliases: m.Aliases,
			Current: m.Current,
			LogDays: len(m.Logs),
		})
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"machines": summaries,
		"total":    len(summaries),
	})
}

// createMachineRequest тело запроса создания станка
type createMachineRequest struct {
	ID      string   `json:"id" binding:"required"`
	Name    string   `json:"name" binding:"required"`
	Brand   string   `json:"brand"`
	Aliases []string `json:"aliases"`
}

// HandleMachineCreate создает новый станок
// @Summary Создать станок
// @Tags machines
// @Accept json
// @Produce json
// @Success 201 {object} database.Machine "Созданный станок"
// @Failure 400 {object} map[string]interface{} "Неверный запрос"
// @Router /api/machines [post]
func (h *MachineHandler) HandleMachineCreate(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "неверное тело запроса: требуются id и name")
		return
	}

	machine, err := h.db.CreateMachine(strings.TrimSpace(req.ID), strings.TrimSpace(req.Name), req.Brand, req.Aliases)
	if err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось создать станок", err))
		return
	}

	SendJSONResponse(c, http.StatusCreated, machine)
}

// HandleMachineLogs возвращает историю суточных записей станка.
// Читает нормализованные записи — источник истины для истории;
// поддерживает query параметры from и to (YYYY-MM-DD, включительно).
// @Summary История станка
// @Tags machines
// @Produce json
// @Param id path string true "Идентификатор станка"
// @Param from query string false "Начальная дата (YYYY-MM-DD)"
// @Param to query string false "Конечная дата (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{} "Суточные записи"
// @Router /api/machines/{id}/logs [get]
func (h *MachineHandler) HandleMachineLogs(c *gin.Context) {
	machineID := c.Param("id")

	machine, err := h.db.GetMachine(machineID)
	if err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось получить станок", err))
		return
	}
	if machine == nil {
		SendJSONError(c, http.StatusNotFound, "станок не найден")
		return
	}

	logs, err := h.db.GetProductionLogs(machineID, c.Query("from"), c.Query("to"))
	if err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось получить журналы станка", err))
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"machine_id": machineID,
		"logs":       logs,
		"total":      len(logs),
	})
}
