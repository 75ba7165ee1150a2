package router

import (
	"github.com/gin-gonic/gin"

	"ashare_store/internal/app/di"
	"ashare_store/internal/platform/http/handler"
	jwtmw "ashare_store/internal/platform/jwt"
)

// NewRouter wires the public probes and the token-protected query API.
func NewRouter(h *di.Handlers, db handler.Pinger, jwtSecret string) *gin.Engine {
	r := gin.Default()

	// public probes
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.GET("/readyz", handler.Readiness(db))

	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	{
		auth.GET("/series/:symbol", h.Series.GetSeries)
		auth.GET("/cross-section/:date", h.Series.ExportCrossSection)
		auth.GET("/boards/:code/constituents", h.Series.GetConstituents)
		auth.GET("/boards/:code/members", h.Instruments.Members)

		auth.GET("/instruments", h.Instruments.List)
		auth.GET("/instruments/:symbol", h.Instruments.Get)
		auth.GET("/instruments/:symbol/boards", h.Instruments.Boards)
	}

	return r
}
