package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/studyhall/roomchat/internal/config"
	"github.com/studyhall/roomchat/internal/core"
	"github.com/studyhall/roomchat/internal/identity"
	"github.com/studyhall/roomchat/internal/store"
)

// NewServer builds the HTTP server: a health probe and the room WebSocket
// endpoint. Which path prefix reaches this server is a routing concern of
// whatever sits in front of it.
func NewServer(registry *core.Registry, messages store.MessageStore, ids identity.Provider, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	ws := NewWSHandler(registry, messages, ids, cfg, logger)
	router.GET("/ws/:room", ws.Serve)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
