package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/handlers"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/api/middleware"
	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/orchestrator"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))

	orch := orchestrator.New(log)
	plansHandler := handlers.NewPlansHandler(orch)
	nodesHandler := handlers.NewNodesHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/plans", plansHandler.CreatePlan)
		api.GET("/plans/:id", plansHandler.GetPlan)
		api.GET("/nodes/rank", nodesHandler.RankNodes)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Info("starting planning API server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		log.Fatal("api server exited", zap.Error(err))
	}
}
