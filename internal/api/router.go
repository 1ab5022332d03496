package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/japaniel/tapdict/pkg/engine"
)

// logMiddleware writes one zerolog line per request.
func logMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		evt := log.Info()
		if len(ctx.Errors) > 0 || ctx.Writer.Status() >= 500 {
			evt = log.Error().Str("errors", ctx.Errors.String())
		}
		evt.
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// NewRouter returns a gin engine serving the dictionary API.
func NewRouter(e *engine.Engine) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logMiddleware())

	h := NewHandler(e)
	router.GET("/lookup", h.Lookup)
	router.POST("/scan", h.Scan)
	router.GET("/dictionaries", h.Dictionaries)
	router.DELETE("/dictionaries/:id", h.DeleteDictionary)
	return router
}
