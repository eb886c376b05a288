// Package middleware содержит Gin middleware сервера дашборда
package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDMiddleware добавляет уникальный request ID к каждому запросу
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)

		c.Next()
	}
}

// GetRequestID извлекает request ID из Gin context
func GetRequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}

	reqID, exists := c.Get("request_id")
	if !exists {
		return ""
	}

	if id, ok := reqID.(string); ok {
		return id
	}

	return ""
}

// CORSMiddleware добавляет CORS заголовки
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// GzipMiddleware включает сжатие ответов
func GzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.BestSpeed)
}

// LoggerMiddleware логирует запросы (health checks пропускаются)
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if path == "/health" || path == "/favicon.ico" {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		reqID := GetRequestID(c)

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		logLine := fmt.Sprintf("[%s] %s %s %d %s",
			c.ClientIP(), c.Request.Method, path, statusCode, latency)
		if reqID != "" {
			logLine += " [RequestID: " + reqID + "]"
		}
		if err := c.Errors.Last(); err != nil {
			logLine += " [Error: " + err.Error() + "]"
		}

		gin.DefaultWriter.Write([]byte(logLine + "\n"))
	}
}

// RecoveryMiddleware обрабатывает паники и возвращает JSON ошибку
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				reqID := GetRequestID(c)

				log.Printf("[GIN] Panic recovered: %v [RequestID: %s]\n%s",
					err, reqID, debug.Stack())

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      true,
					"message":    "Внутренняя ошибка сервера",
					"request_id": reqID,
				})
			}
		}()

		c.Next()
	}
}

// RateLimitMiddleware ограничивает частоту запросов (token bucket).
// Используется на эндпоинте загрузки выгрузок, чтобы массовые повторные
// загрузки не блокировали работу с БД.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Слишком много запросов, повторите позже",
			})
			return
		}

		c.Next()
	}
}
