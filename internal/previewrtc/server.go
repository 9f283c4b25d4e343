package previewrtc

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server exposes Sink's offer endpoint over HTTP, grounded on
// handlers_gin.go's router setup generalized from a multi-device hub
// down to this client's single /offer route.
type Server struct {
	sink *Sink
	http *http.Server
}

// NewServer builds a Server for sink. webRoot, if non-empty, is served
// as static files at "/" (the preview page and its JS client).
func NewServer(sink *Sink, addr, webRoot string) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())
	if webRoot != "" {
		e.Static("/", webRoot)
	}
	e.POST("/offer", sink.HandleOffer)

	return &Server{
		sink: sink,
		http: &http.Server{Addr: addr, Handler: e},
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the HTTP server down, waiting up to the given timeout for
// in-flight requests to finish.
func (s *Server) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
