package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter returns a gin engine with recovery and slog request logging.
func NewRouter(logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	return r
}

// requestLogger logs one line per request. 5xx responses log at error.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
