package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/studentregistry/internal/bootstrap"
	"github.com/yigit/studentregistry/internal/config"
	"github.com/yigit/studentregistry/internal/pkg/helpers"
)

const shutdownTimeout = 10 * time.Second

// Server holds the state for the HTTP server.
type Server struct {
	config  *config.Config
	router  *gin.Engine
	storage *bootstrap.Storage
	feed    io.Closer
	logger  zerolog.Logger
	http    *http.Server

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	storage, err := bootstrap.SetupStorage(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, storage, lgr)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return New(cfg, bootstrap.SetupRouter(cfg, deps, lgr), storage, deps.FeedHub, lgr), nil
}

// New assembles a server from already built parts. feed may be nil.
func New(cfg *config.Config, router *gin.Engine, storage *bootstrap.Storage, feed io.Closer, lgr zerolog.Logger) *Server {
	return &Server{
		config:  cfg,
		router:  router,
		storage: storage,
		feed:    feed,
		logger:  lgr,
		http: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  helpers.ParseDuration(cfg.Server.ReadTimeout, 10*time.Second),
			WriteTimeout: helpers.ParseDuration(cfg.Server.WriteTimeout, 10*time.Second),
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	// Channel to listen for errors starting the server
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignals)

	// Block until we receive either a server error or an OS signal
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			if closeErr := s.closeResources(); closeErr != nil {
				return fmt.Errorf("error starting server: %w", errors.Join(err, closeErr))
			}
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops the server and closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var shutdownErr error

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = errors.Join(shutdownErr, err)
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if err := s.closeResources(); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown completed with errors: %w", shutdownErr)
	}
	return nil
}

// closeResources disconnects feed clients and releases the storage, exactly once
// however many shutdown paths reach it. Hijacked feed connections are not
// tracked by http.Server, so the feed is closed explicitly.
func (s *Server) closeResources() error {
	s.closeOnce.Do(func() {
		if s.feed != nil {
			if err := s.feed.Close(); err != nil {
				s.logger.Error().Err(err).Msg("Change feed close error")
				s.closeErr = errors.Join(s.closeErr, err)
			}
		}

		if s.storage == nil {
			return
		}
		s.logger.Info().Msg("Closing student storage...")
		if err := s.storage.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Storage close error")
			s.closeErr = errors.Join(s.closeErr, err)
			return
		}
		s.logger.Info().Msg("Student storage closed.")
	})
	return s.closeErr
}
