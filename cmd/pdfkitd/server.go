package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mechiko/pdfkit/config"
	"github.com/mechiko/pdfkit/internal/zap4echo"
)

const (
	defaultAddr            = "127.0.0.1:8888"
	defaultShutdownTimeout = 5 * time.Second
)

// Server exposes document upload/validate/save over HTTP, wrapping a single
// in-memory store shared across requests.
type Server struct {
	echo            *echo.Echo
	addr            string
	notify          chan error
	shutdownTimeout time.Duration
	docs            *store
	cfg             config.EngineConfig
}

// New builds a Server listening on host:port (falling back to
// defaultAddr when port is empty) with logging and recovery middleware
// already wired.
func New(host, port string, cfg config.EngineConfig) (*Server, error) {
	addr := fmt.Sprintf("%s:%s", host, port)
	if port == "" {
		addr = defaultAddr
	}

	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	e.HideBanner = true

	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("pdfkitd: build logger: %w", err)
	}

	e.Use(
		zap4echo.Logger(log),
		zap4echo.Recover(log),
	)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
	}))

	s := &Server{
		echo:            e,
		addr:            addr,
		notify:          make(chan error, 1),
		shutdownTimeout: defaultShutdownTimeout,
		docs:            newStore(),
		cfg:             cfg,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.echo.POST("/documents", s.uploadDocument)
	s.echo.POST("/documents/:id/validate", s.validateDocument)
	s.echo.POST("/documents/:id/save", s.saveDocument)
}

// Start runs the server in a background goroutine; errors (including a
// clean http.ErrServerClosed on Shutdown) arrive on Notify.
func (s *Server) Start() {
	go func() {
		s.notify <- s.echo.Start(s.addr)
		close(s.notify)
	}()
}

func (s *Server) Notify() <-chan error {
	return s.notify
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
