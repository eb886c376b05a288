package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prodboard/server/services"
)

// ImportHandler обработчик потока импорта суточной выгрузки:
// загрузка -> проверка соответствий -> шлюз тканей -> сверка -> применение
type ImportHandler struct {
	sessions *services.ImportSessionService
}

// NewImportHandler создает новый обработчик импорта
func NewImportHandler(sessions *services.ImportSessionService) *ImportHandler {
	return &ImportHandler{sessions: sessions}
}

// HandleUpload принимает книгу Excel и открывает сессию импорта
// @Summary Загрузить суточную выгрузку
// @Description Разбирает первый лист книги и открывает сессию импорта
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param workbook formData file true "Книга Excel"
// @Param target_date formData string true "Целевая дата (YYYY-MM-DD)"
// @Success 200 {object} services.SessionView "Материал для проверки"
// @Failure 400 {object} map[string]interface{} "Ошибка разбора"
// @Router /api/import/upload [post]
func (h *ImportHandler) HandleUpload(c *gin.Context) {
	targetDate := c.PostForm("target_date")
	if targetDate == "" {
		SendJSONError(c, http.StatusBadRequest, "target_date обязателен")
		return
	}

	fileHeader, err := c.FormFile("workbook")
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "файл выгрузки обязателен (поле workbook)")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "не удалось открыть загруженный файл")
		return
	}
	defer file.Close()

	view, err := h.sessions.Open(file, targetDate)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, view)
}

// saveMappingRequest тело правки соответствия рабочего центра
type saveMappingRequest struct {
	Label     string `json:"label" binding:"required"`
	MachineID string `json:"machine_id" binding:"required"`
}

// HandleSaveMapping сохраняет правку соответствия рабочий центр -> станок
// @Summary Сохранить соответствие рабочего центра
// @Description Правка персистится немедленно и действует для текущей сессии
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} services.SessionView "Обновленный материал проверки"
// @Failure 409 {object} map[string]interface{} "Нет активной сессии"
// @Router /api/import/mappings [post]
func (h *ImportHandler) HandleSaveMapping(c *gin.Context) {
	var req saveMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "неверное тело запроса: требуются label и machine_id")
		return
	}

	view, err := h.sessions.SaveMapping(req.Label, req.MachineID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, view)
}

// createFabricsRequest тело запроса создания отсутствующих тканей
type createFabricsRequest struct {
	Names []string `json:"names" binding:"required"`
}

// HandleCreateFabrics создает одобренные оператором отсутствующие ткани
// @Summary Создать отсутствующие ткани
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} services.SessionView "Обновленный материал проверки"
// @Router /api/import/fabrics [post]
func (h *ImportHandler) HandleCreateFabrics(c *gin.Context) {
	var req createFabricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "неверное тело запроса: требуется names")
		return
	}

	view, err := h.sessions.CreateFabrics(req.Names)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, view)
}

// HandleReconcile выполняет сверку и возвращает подготовленные строки
// @Summary Выполнить сверку
// @Description Строит по одной строке на каждый станок; строки с замечаниями первыми
// @Tags import
// @Produce json
// @Success 200 {object} map[string]interface{} "Подготовленные строки"
// @Failure 409 {object} map[string]interface{} "Нет активной сессии"
// @Router /api/import/reconcile [post]
func (h *ImportHandler) HandleReconcile(c *gin.Context) {
	staged, err := h.sessions.Reconcile()
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"rows":  staged,
		"total": len(staged),
	})
}

// applyRequest тело запроса применения: идентификаторы выбранных станков
type applyRequest struct {
	MachineIDs []string `json:"machine_ids" binding:"required"`
}

// HandleApply применяет выбранные строки сверки
// @Summary Применить выбранные строки
// @Description Записывает выбранные строки атомарными пакетами; при ошибке уже закоммиченные пакеты не откатываются
// @Tags import
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Количество обновленных станков"
// @Failure 500 {object} map[string]interface{} "Применение не удалось"
// @Router /api/import/apply [post]
func (h *ImportHandler) HandleApply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendJSONError(c, http.StatusBadRequest, "неверное тело запроса: требуется machine_ids")
		return
	}

	selected := make(map[string]bool, len(req.MachineIDs))
	for _, id := range req.MachineIDs {
		selected[id] = true
	}

	updated, err := h.sessions.Apply(selected)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	SendJSONResponse(c, http.StatusOK, gin.H{
		"updated": updated,
	})
}

// HandleCloseSession закрывает сессию импорта без применения
// @Summary Закрыть сессию импорта
// @Description Отбрасывает подготовленное состояние; сохраненные правки соответствий остаются
// @Tags import
// @Produce json
// @Success 200 {object} map[string]interface{} "Закрыто"
// @Router /api/import/session [delete]
func (h *ImportHandler) HandleCloseSession(c *gin.Context) {
	h.sessions.Close()
	SendJSONResponse(c, http.StatusOK, gin.H{"closed": true})
}
