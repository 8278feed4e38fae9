// Package tictactoe wires the registry, the game engine and the hub into a
// tic-tac-toe session server.
package tictactoe

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/iguagile/iguagile-tictactoe/hub"
	"github.com/iguagile/iguagile-tictactoe/registry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server is server manages players and games.
type Server struct {
	config        Config
	registry      *registry.Registry
	engine        *game.Engine
	store         Store
	metrics       *Metrics
	hub           *hub.Hub
	listener      net.Listener
	adminListener net.Listener
	log           *zap.Logger
}

// NewServer binds the listeners. Nothing is served until Run.
func NewServer(config Config, logger *zap.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store Store = nopStore{}
	if config.RedisAddr != "" {
		redisStore, err := NewRedisStore(config.RedisAddr, logger)
		if err != nil {
			logger.Warn("presence store disabled", zap.Error(err))
		} else {
			store = redisStore
		}
	}
	if err := store.Reset(); err != nil {
		logger.Warn("store", zap.Error(err))
	}

	s := &Server{
		config:   config,
		registry: registry.New(),
		engine:   game.NewEngine(config.MaxGames),
		store:    store,
		metrics:  NewMetrics(),
		log:      logger,
	}

	dispatcher := NewDispatcher(s.registry, s.engine, s.store, s.metrics, config.MaxClients, logger)
	s.hub = hub.New(dispatcher, config.SendQueue, config.MaxMessageSize, logger)

	listener, err := net.Listen("tcp", net.JoinHostPort(config.Host, strconv.Itoa(config.Port)))
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "listen")
	}
	s.listener = listener

	if config.AdminAddr != "" {
		adminListener, err := net.Listen("tcp", config.AdminAddr)
		if err != nil {
			_ = listener.Close()
			_ = store.Close()
			return nil, errors.Wrap(err, "listen admin")
		}
		s.adminListener = adminListener
	}

	return s, nil
}

// Addr returns the game listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Port returns the game listener port, useful when 0 was configured.
func (s *Server) Port() int {
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// AdminAddr returns the admin listener address, or nil when disabled.
func (s *Server) AdminAddr() net.Addr {
	if s.adminListener == nil {
		return nil
	}
	return s.adminListener.Addr()
}

// Run serves until ctx is done or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.log.Warn("close store", zap.Error(err))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(ctx)
	})

	g.Go(func() error {
		return s.hub.ServeTCP(ctx, s.listener)
	})

	if s.adminListener != nil {
		var ws http.HandlerFunc
		if s.config.Websocket {
			ws = s.hub.ServeWebsocket
		}

		admin := &http.Server{
			Handler:           NewAdminHandler(s.registry, s.engine, s.metrics, ws),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			if err := admin.Serve(s.adminListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "admin")
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	s.log.Info("server started", zap.Stringer("addr", s.Addr()))
	return g.Wait()
}
