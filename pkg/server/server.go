// Package server exposes the token cache over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var errMissingTokens = errors.New("token source is required")

// TokenSource serves the token list for a server key.
type TokenSource interface {
	GetTokens(ctx context.Context, key string) []string
}

// Config configures a Server.
type Config struct {
	Tokens TokenSource
	Logger *zap.Logger
}

// Server serves cached tokens over HTTP.
type Server struct {
	app    *fiber.App
	tokens TokenSource
	logger *zap.Logger
}

// New creates a Server using the provided config.
func New(c Config) (*Server, error) {
	if c.Tokens == nil {
		return nil, errMissingTokens
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		tokens: c.Tokens,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Refreshes are synchronous on first read; give them room.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	})

	app.Get("/healthz", s.handleHealth)
	app.Get("/v1/tokens/:key", s.handleTokens)

	s.app = app

	return s, nil
}

// Listen serves HTTP on the given address until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Test routes a request through the server without network I/O.
func (s *Server) Test(req *http.Request) (*http.Response, error) {
	return s.app.Test(req, -1)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleTokens(c *fiber.Ctx) error {
	key := strings.ToUpper(c.Params("key"))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key is required"})
	}

	tokens := s.tokens.GetTokens(c.UserContext(), key)

	return c.JSON(fiber.Map{
		"key":    key,
		"count":  len(tokens),
		"tokens": tokens,
	})
}
