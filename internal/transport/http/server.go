package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Server is the HTTP server together with the WebSocket connections it
// has hijacked.
type Server struct {
	*stdhttp.Server
	ws *WSHandler
}

// Shutdown stops accepting requests, then closes open WebSocket
// connections and waits for their handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Join(s.Server.Shutdown(ctx), s.ws.Shutdown(ctx))
}

// NewServer builds the HTTP server: account endpoints, read-only chat
// views and the WebSocket endpoint. /ws is mounted outside gin, whose
// response writer cannot be hijacked once gin has written headers.
func NewServer(
	router *core.Router,
	conns *Connections,
	authService *auth.Service,
	messages store.MessageStore,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	engine.POST("/register", apiHandlers.Register)
	engine.POST("/login", apiHandlers.Login)

	chatHandlers := NewChatHandlers(router.Registry(), messages, cfg.HistoryLimit, logger)
	api := engine.Group("/api")
	if cfg.RequireToken {
		api.Use(AuthMiddleware(authService, logger))
	}
	api.GET("/messages", chatHandlers.History)
	api.GET("/users/online", chatHandlers.Online)

	ws := NewWSHandler(router, conns, authService, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
		RequireToken:    cfg.RequireToken,
	}, logger)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", engine)

	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		ws: ws,
	}
}
