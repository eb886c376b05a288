// Package handlers содержит HTTP обработчики дашборда производства
package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	apperrors "prodboard/server/errors"
)

// SendJSONResponse отправляет успешный JSON ответ
func SendJSONResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SendJSONError отправляет JSON ошибку в едином формате
func SendJSONError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// HandleAppError переводит ошибку приложения в HTTP ответ.
// Детали внутренних ошибок попадают только в лог.
func HandleAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}

	if appErr.Err != nil {
		log.Printf("[Handlers] %s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
	}

	SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
}
