package api

import (
	"context"
	"iter"
	"log/slog"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/ghmodels/pkg/llm"
	"github.com/papercomputeco/ghmodels/pkg/logger"
)

// Completer is the part of the chat client the gateway serves.
type Completer interface {
	CompleteResponse(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	CompleteStreaming(ctx context.Context, req llm.ChatRequest) iter.Seq2[llm.Token, error]
}

// Server is the gateway server.
type Server struct {
	config Config
	client Completer
	logger *slog.Logger
	app    *fiber.App

	// ctx outlives single requests and bounds background streams; Shutdown
	// cancels it.
	ctx  context.Context
	stop context.CancelFunc
}

// NewServer creates a new gateway over client.
func NewServer(config Config, client Completer, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		client: client,
		logger: log,
		app:    app,
		ctx:    ctx,
		stop:   stop,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/chat", s.handleChat)

	return s
}

// Listen binds the configured address. Serve the result with
// RunWithListener.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.config.ListenAddr)
}

// RunWithListener starts the gateway using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting gateway", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown cancels in-flight streams and gracefully shuts down the gateway.
func (s *Server) Shutdown() error {
	s.stop()
	return s.app.Shutdown()
}
