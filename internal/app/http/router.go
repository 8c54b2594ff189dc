package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prmonitor/internal/app/http/handler"
	"prmonitor/internal/app/http/middleware"
)

func NewRouter(h *handler.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		middleware.ZapLogger(log),
		middleware.ZapRecovery(log),
	)

	r.GET("/health", h.Health)

	r.GET("/tracker/prs", h.TrackedList)
	r.GET("/tracker/repositories", h.RepoList)
	r.POST("/tracker/repositories", h.RepoAdd)

	r.GET("/stats/tracked", h.StatsTracked)

	return r
}
