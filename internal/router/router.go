package router

import (
	"slices"
	"time"

	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/handler"
	"github.com/focuscycle/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter 配置 Gin 引擎和路由
// gdb 为空时使用 db.DB
func SetupRouter(gdb *gorm.DB, origins []string, log *zap.Logger) *gin.Engine {
	if gdb == nil {
		gdb = db.DB
	}
	log = logger.OrNop(log)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), corsMiddleware(origins))

	api := handler.NewAPI(gdb)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "FocusCycle API"})
	})

	group := r.Group("/api")
	{
		group.GET("/health", api.Health)

		group.GET("/cycles", api.ListCycles)
		group.POST("/cycles", api.CreateCycle)
		group.GET("/cycles/active", api.GetActiveCycle)
		group.GET("/cycles/:id", api.GetCycle)
		group.PUT("/cycles/:id", api.UpdateCycle)
		group.DELETE("/cycles/:id", api.DeleteCycle)
		group.PUT("/cycles/:id/activate", api.ActivateCycle)
		group.PUT("/cycles/:id/reset-week", api.ResetCycleWeek)

		group.POST("/subjects", api.CreateSubject)
		group.PUT("/subjects/:id", api.UpdateSubject)
		group.DELETE("/subjects/:id", api.DeleteSubject)

		group.POST("/sessions", api.CreateSession)

		group.GET("/stats/general", api.GetGeneralStats)
		group.GET("/stats/:date", api.GetDailyStats)
		group.PUT("/stats/:date", api.UpdateDailyStats)

		group.GET("/export/json", api.ExportJSON)
		group.GET("/export/csv", api.ExportCSV)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("request", fields...)
	}
}
