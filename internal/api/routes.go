package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handlers, metrics http.Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.POST("/export", h.exportOnce)

		api.POST("/boards", h.createBoard)
		api.GET("/boards/:id", h.getBoard)
		api.PATCH("/boards/:id", h.patchBoard)
		api.DELETE("/boards/:id", h.deleteBoard)
		api.POST("/boards/:id/reset", h.resetBoard)
		api.POST("/boards/:id/export", h.exportBoard)

		api.POST("/boards/:id/slots", h.addSlot)
		api.DELETE("/boards/:id/slots", h.removeLastSlot)
		api.DELETE("/boards/:id/slots/:slot", h.removeSlot)
		api.PUT("/boards/:id/slots/:slot/image", h.putImage)
		api.DELETE("/boards/:id/slots/:slot/image", h.deleteImage)
		api.POST("/boards/:id/images", h.addImages)
	}
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
}

// RequestLogger logs one line per request through slog.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"elapsed", time.Since(start),
		)
	}
}

// NewEngine builds the gin engine with recovery, request logging and all
// routes registered.
func NewEngine(h *Handlers, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if h.Log != nil {
		r.Use(RequestLogger(h.Log))
	}
	if h.MaxUpload > 0 {
		r.MaxMultipartMemory = h.MaxUpload
	}
	RegisterRoutes(r, h, metrics)
	return r
}
