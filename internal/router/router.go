package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"skillscan/internal/handler"
)

func SetupRouter(r *gin.Engine, hdl handler.Handler) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.POST("/runs", hdl.StartRun)
		api.GET("/runs", hdl.ListRuns)
		api.GET("/runs/:runId", hdl.GetRun)
		api.DELETE("/runs/:runId", hdl.DeleteRun)
		api.GET("/runs/:runId/result", hdl.DownloadResult)
		api.HEAD("/runs/:runId/result", hdl.DownloadResult)
		api.GET("/deps", hdl.Doctor)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
