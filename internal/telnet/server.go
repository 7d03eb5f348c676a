// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package telnet provides a line-based gateway: each connection picks a
// player name and then sends account commands.
package telnet

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/command"
)

// ServerConfig holds the collaborators of a Server.
type ServerConfig struct {
	Addr       string
	Hub        *Hub
	Dispatcher *command.Dispatcher
	Services   *command.Services
	Logger     *slog.Logger
}

// Server is a telnet server.
type Server struct {
	cfg      ServerConfig
	listener net.Listener
	mu       sync.RWMutex
	conns    sync.WaitGroup
}

// NewServer creates a new telnet server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Hub == nil || cfg.Dispatcher == nil || cfg.Services == nil {
		return nil, oops.Code("TELNET_INVALID_CONFIG").Errorf("hub, dispatcher and services are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}, nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the listen address. Run calls it when it has not been
// called yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return oops.Code("TELNET_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener
	return nil
}

// Close releases a listener bound by Listen. Run closes its listener on
// its own; Close is for a server that never ran.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return oops.Code("TELNET_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Run accepts connections until ctx is cancelled, then waits for open
// connections to finish.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()

	s.cfg.Logger.Info("telnet server started", "addr", listener.Addr().String())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		if err := listener.Close(); err != nil {
			s.cfg.Logger.Debug("error closing listener", "error", err)
		}
	}()

	defer s.conns.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.cfg.Logger.Error("accept failed", "error", err)
				continue
			}
		}
		c := NewConnection(conn, s.cfg.Hub, s.cfg.Dispatcher, s.cfg.Services, s.cfg.Logger)
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			c.Handle(ctx)
		}()
	}
}
