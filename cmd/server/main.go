package main

import (
	"log"

	"github.com/focuscycle/internal/config"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/logger"
	"github.com/focuscycle/internal/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(db.DB, cfg.CORSOrigins, zl)
	zl.Info("server listening", zap.String("addr", cfg.ListenAddr), zap.String("database", cfg.DatabasePath))
	if err := r.Run(cfg.ListenAddr); err != nil {
		zl.Fatal("failed to run server", zap.Error(err))
	}
}
