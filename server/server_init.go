// Package server собирает HTTP сервер дашборда производства
package server

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"prodboard/database"
	"prodboard/internal/config"
	"prodboard/server/handlers"
	"prodboard/server/middleware"
	"prodboard/server/services"
)

// Server HTTP сервер дашборда производства
type Server struct {
	config *config.Config
	db     *database.PlantDB
	router *gin.Engine

	sessions *services.ImportSessionService
}

// NewServer создает сервер: открывает БД, собирает сервисы и маршруты
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.NewPlantDBWithConfig(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open plant database: %w", err)
	}

	resolver := services.NewResolverService(db)
	fabrics := services.NewFabricService(db)
	reconciler := services.NewReconciliationService(cfg.ProductionSlack)
	commit := services.NewCommitService(db)
	sessions := services.NewImportSessionService(db, resolver, fabrics, reconciler, commit)

	s := &Server{
		config:   cfg,
		db:       db,
		sessions: sessions,
	}
	s.setupRouter()

	return s, nil
}

// setupRouter настраивает middleware и маршруты
func (s *Server) setupRouter() {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.GzipMiddleware())

	machineHandler := handlers.NewMachineHandler(s.db)
	fabricHandler := handlers.NewFabricHandler(s.db)
	importHandler := handlers.NewImportHandler(s.sessions)
	dashboardHandler := handlers.NewDashboardHandler(s.db, services.NewDashboardService(s.db))

	router.GET("/health", dashboardHandler.HandleHealth)

	api := router.Group("/api")
	{
		api.GET("/machines", machineHandler.HandleMachinesList)
		api.POST("/machines", machineHandler.HandleMachineCreate)
		api.GET("/machines/:id/logs", machineHandler.HandleMachineLogs)

		api.GET("/fabrics", fabricHandler.HandleFabricsList)
		api.POST("/fabrics", fabricHandler.HandleFabricCreate)

		api.GET("/dashboard/stats", dashboardHandler.HandleStats)

		imports := api.Group("/import")
		{
			// Повторные массовые загрузки книг ограничиваются token bucket
			imports.POST("/upload",
				middleware.RateLimitMiddleware(s.config.UploadRPS, s.config.UploadBurst),
				importHandler.HandleUpload)
			imports.POST("/mappings", importHandler.HandleSaveMapping)
			imports.POST("/fabrics", importHandler.HandleCreateFabrics)
			imports.POST("/reconcile", importHandler.HandleReconcile)
			imports.POST("/apply", importHandler.HandleApply)
			imports.DELETE("/session", importHandler.HandleCloseSession)
		}
	}

	s.router = router
}

// Router возвращает настроенный роутер (для тестов)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := ":" + s.config.Port
	log.Printf("[Server] Listening on %s (database: %s)", addr, s.config.DatabasePath)
	return s.router.Run(addr)
}

// Close закрывает ресурсы сервера
func (s *Server) Close() error {
	return s.db.Close()
}
