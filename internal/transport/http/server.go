package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/campusconnect/campusconnect-server/internal/config"
	"github.com/campusconnect/campusconnect-server/internal/core"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}

// NewServer builds the HTTP server: a health check and the realtime endpoint.
func NewServer(hub *core.Hub, resolver *core.Resolver, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, resolver, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler routes /ws straight to the websocket handler and everything else to gin.
// The upgrade must own the raw ResponseWriter so it can hijack the connection.
func NewHandler(hub *core.Hub, resolver *core.Resolver, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, resolver, cfg, logger))
	mux.Handle("/", NewRouter(logger))
	return mux
}

// NewRouter builds the gin engine serving the REST routes.
func NewRouter(logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/api/health", healthHandler)

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, HealthResponse{OK: true, TS: time.Now().UnixMilli()})
}
