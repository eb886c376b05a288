package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prodboard/database"
	"prodboard/normalization"
	apperrors "prodboard/server/errors"
)

// FabricHandler обработчик справочника тканей
type FabricHandler struct {
	db *database.PlantDB
}

// NewFabricHandler создает новый обработчик справочника тканей
func NewFabricHandler(db *database.PlantDB) *FabricHandler {
	return &FabricHandler{db: db}
}

// HandleFabricsList возвращает справочник тканей
// @Summary Справочник тканей
// @Tags fabrics
// @Produce json
// @Success 200 {object} map[string]interface{} "Список тканей"
// @Router /api/fabrics [get]
func (h *FabricHandler) HandleFabricsList(c *gin.Context) {
	fabrics, err := h.db.GetFabrics()
	if err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось получить справочник тканей", err))
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"fabrics": fabrics,
		"total":   len(fabrics),
	})
}

// createFabricRequest тело запроса создания ткани
type createFabricRequest struct {
	Name      string `json:"name" binding:"required"`
	ShortName string `json:"short_name"`
}

// HandleFabricCreate создает ткань; короткое имя выводится автоматически,
// если не задано явно
// @Summary Создать ткань
// @Tags fabrics
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{} "Создано"
// @Failure 400 {object} map[string]interface{} "Неверный запрос"
// @Router /api/fabrics [post]
func (h *FabricHandler) HandleFabricCreate(c *gin.Context) {
	var req createFabricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "неверное тело запроса: требуется name")
		return
	}

	name := strings.TrimSpace(req.Name)
	shortName := strings.TrimSpace(req.ShortName)
	if shortName == "" {
		shortName = normalization.ShortFabricName(name)
	}

	if err := h.db.CreateFabric(name, shortName); err != nil {
		HandleAppError(c, apperrors.NewInternalError("не удалось создать ткань", err))
		return
	}

	SendJSONResponse(c, http.StatusCreated, gin.H{
		"name":       name,
		"short_name": shortName,
	})
}
