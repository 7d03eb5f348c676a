// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package telnet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoauth/internal/command"
	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/process"
)

// outboxSize bounds the lines queued for one connection.
const outboxSize = 64

// Connection is one telnet client. Once named it acts as a process.Player.
//
// All writes to the socket go through the outbox, drained by a single
// writer goroutine, so executor workers never block on a slow client.
type Connection struct {
	conn       net.Conn
	reader     *bufio.Reader
	hub        *Hub
	dispatcher *command.Dispatcher
	services   *command.Services
	logger     *slog.Logger

	id      ulid.ULID
	name    string
	address string

	outbox    chan string
	done      chan struct{}
	closeOnce sync.Once
}

var _ process.Player = (*Connection)(nil)

// NewConnection wraps conn.
func NewConnection(conn net.Conn, hub *Hub, dispatcher *command.Dispatcher, services *command.Services, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		hub:        hub,
		dispatcher: dispatcher,
		services:   services,
		logger:     logger,
		id:         ulid.Make(),
		address:    remoteIP(conn.RemoteAddr()),
		outbox:     make(chan string, outboxSize),
		done:       make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Connection) ID() ulid.ULID { return c.id }

// Name returns the player name, empty until the client has chosen one.
func (c *Connection) Name() string { return c.name }

// Address returns the client IP.
func (c *Connection) Address() string { return c.address }

// Handle serves the connection until the client quits, the socket fails,
// or ctx is cancelled.
func (c *Connection) Handle(ctx context.Context) {
	logger := c.logger.With("conn_id", c.id.String(), "remote_ip", c.address)

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		c.writeLoop(logger)
	}()

	lineCh := make(chan string)
	errCh := make(chan error, 1)
	go c.readLoop(lineCh, errCh)

	defer func() {
		c.close()
		writer.Wait()
		if err := c.conn.Close(); err != nil {
			logger.Debug("error closing connection", "error", err)
		}
	}()

	c.send("Welcome! What is your name?")

	for {
		select {
		case <-ctx.Done():
			c.leave(ctx)
			return

		case err := <-errCh:
			if !errors.Is(err, io.EOF) {
				logger.Debug("connection read error", "error", err)
			}
			c.leave(ctx)
			return

		case line := <-lineCh:
			if !c.processLine(ctx, logger, line) {
				c.leave(ctx)
				return
			}
		}
	}
}

func (c *Connection) readLoop(lineCh chan<- string, errCh chan<- error) {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		select {
		case lineCh <- strings.TrimSpace(line):
		case <-c.done:
			return
		}
	}
}

func (c *Connection) writeLoop(logger *slog.Logger) {
	for {
		select {
		case line := <-c.outbox:
			c.write(logger, line)
		case <-c.done:
			// Flush what is already queued, then stop.
			for {
				select {
				case line := <-c.outbox:
					c.write(logger, line)
				default:
					return
				}
			}
		}
	}
}

func (c *Connection) write(logger *slog.Logger, line string) {
	if _, err := fmt.Fprint(c.conn, line+"\r\n"); err != nil {
		logger.Debug("failed to send message to client", "error", err)
	}
}

// processLine handles one input line and reports whether to keep reading.
func (c *Connection) processLine(ctx context.Context, logger *slog.Logger, line string) bool {
	if line == "" {
		return true
	}
	if c.name == "" {
		return c.chooseName(ctx, line)
	}
	if strings.EqualFold(line, "quit") {
		c.send("Goodbye!")
		return false
	}

	exec := &command.CommandExecution{
		SessionID: c.id,
		Player:    c,
		Output:    outboxWriter{c},
		Services:  c.services,
	}
	if err := c.dispatcher.Dispatch(ctx, line, exec); err != nil {
		c.send(command.PlayerMessage(err, c.hub.Catalog()))
		logger.Debug("command rejected", "error", err)
	}
	return true
}

func (c *Connection) chooseName(ctx context.Context, name string) bool {
	if strings.ContainsAny(name, " \t") || identity.Normalize(name).IsZero() {
		c.send("Names are a single word. What is your name?")
		return true
	}
	if strings.EqualFold(name, "quit") {
		c.send("Goodbye!")
		return false
	}

	c.name = name
	if !c.hub.Claim(c) {
		c.name = ""
		c.send("That name is already connected. What is your name?")
		return true
	}

	if err := c.services.Executor.Submit(process.NewJoin(c.services.Deps, c)); err != nil {
		c.send(command.PlayerMessage(err, c.hub.Catalog()))
		return false
	}
	c.logger.InfoContext(ctx, "player connected",
		"conn_id", c.id.String(),
		"player", c.name)
	return true
}

// leave ends the player's session and frees the name. The Disconnect is
// queued before the name is released so a later holder's processes run
// after it.
func (c *Connection) leave(ctx context.Context) {
	c.dispatcher.EndSession(c.id)
	c.close()
	if c.name == "" {
		return
	}
	defer c.hub.Release(c)

	deps := c.services.Deps
	if err := c.services.Executor.Submit(process.NewDisconnect(deps, c)); err != nil {
		deps.Cache.RemovePlayer(identity.Normalize(c.name))
		c.logger.WarnContext(ctx, "disconnect not queued, session dropped",
			"player", c.name,
			"error", err)
	}
	c.logger.InfoContext(ctx, "player disconnected",
		"conn_id", c.id.String(),
		"player", c.name)
}

// enqueue queues a line without blocking. It reports false when the outbox
// is full or the connection is closing.
func (c *Connection) enqueue(line string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbox <- line:
		return true
	default:
		return false
	}
}

func (c *Connection) send(line string) {
	if !c.enqueue(line) {
		DroppedMessages.Inc()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// outboxWriter lets command handlers write through the outbox.
type outboxWriter struct{ c *Connection }

func (w outboxWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\r\n"), "\n") {
		w.c.send(strings.TrimRight(line, "\r"))
	}
	return len(p), nil
}

func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
