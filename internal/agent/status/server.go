// Package status serves the read-only HTTP view of a running capture session.
package status

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yaulta/internal/agent/sink"
)

type Snapshot struct {
	Interface    string       `json:"interface"`
	StartedAt    time.Time    `json:"started_at"`
	State        string       `json:"state"`
	Frames       uint64       `json:"frames"`
	SourceErrors uint64       `json:"source_errors"`
	Sinks        []sink.Stats `json:"sinks"`
}

type Provider interface {
	Snapshot() Snapshot
}

type Server struct {
	httpServer *http.Server
}

func NewServer(addr string, p Provider) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(p),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func NewRouter(p Provider) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := NewHandlers(p)
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1 := router.Group("/api/v1")
	{
		v1.GET("/stats", h.Stats)
	}
	return router
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
