package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/r6voip-server/internal/config"
	"github.com/vovakirdan/r6voip-server/internal/core"
)

// Gateway is the part of core.Hub the transport depends on.
type Gateway interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	RoomCount() int
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// NewServer builds the HTTP server: /health, /ws and, when metrics is non-nil, /metrics.
// /ws bypasses gin so the upgrade can hijack the raw connection.
func NewServer(hub Gateway, cfg config.Config, logger *zerolog.Logger, metrics stdhttp.Handler) (*stdhttp.Server, error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))
	engine.Use(CORSMiddleware(cfg.AllowedOrigins))

	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, HealthResponse{Status: "ok", Rooms: hub.RoomCount()})
	})
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics))
	}

	ws, err := NewWSHandler(hub, cfg.AllowedOrigins, cfg.TrustedProxies, logger)
	if err != nil {
		return nil, err
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", engine)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}, nil
}
