// Package server serves a directory of built page assets over an ephemeral
// loopback listener. Pages built as module scripts often refuse to boot from
// file:// URLs, so the pipeline can point the browser at this server instead.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Static serves a built asset directory on 127.0.0.1.
type Static struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
}

// New creates a server rooted at dir. It does not listen until Start.
func New(dir string) *Static {
	router := mux.NewRouter()
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(dir)))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return &Static{
		httpServer: &http.Server{
			Handler:      c.Handler(router),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Start begins serving on a random loopback port and returns the base URL,
// e.g. "http://127.0.0.1:41372". Non-blocking; the server runs in the
// background until Shutdown.
func (s *Static) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	go func() {
		// Serve returns ErrServerClosed after Shutdown.
		_ = s.httpServer.Serve(ln)
	}()

	return "http://" + s.addr, nil
}

// Addr returns the listen address, or "" before Start.
func (s *Static) Addr() string { return s.addr }

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Static) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
