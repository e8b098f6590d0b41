// ABOUTME: HTTP surface wiring the webhook and administrative endpoints
// ABOUTME: Owns the listener lifecycle with signal-driven graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/courierbot/courier/internal/bot"
	"github.com/courierbot/courier/internal/config"
	"github.com/courierbot/courier/internal/dispatch"
	"github.com/courierbot/courier/internal/refstore"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// Server hosts the inbound webhook and the administrative API.
type Server struct {
	cfg        *config.Config
	store      refstore.Store
	dispatcher *dispatch.Dispatcher
	bot        *bot.Bot
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a server over the given collaborators.
func New(cfg *config.Config, store refstore.Store, d *dispatch.Dispatcher, b *bot.Bot) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		dispatcher: d,
		bot:        b,
		logger:     slog.Default().With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/notify", s.requireToken(s.handleNotify))
	mux.HandleFunc("/api/send-message", s.requireToken(s.handleSendMessage))
	mux.HandleFunc("/api/send-by-convid", s.requireToken(s.handleSendByConvID))
	mux.HandleFunc("/api/conversations", s.requireToken(s.handleConversations))
	mux.HandleFunc("/api/conversations/", s.requireToken(s.handleConversationByID))
	mux.HandleFunc("/api/export", s.requireToken(s.handleExport))
	mux.HandleFunc("/api/migrate", s.requireToken(s.handleMigrate))
	mux.HandleFunc("/api/diagnostics", s.requireToken(s.handleDiagnostics))

	s.httpServer = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Server.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
