// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package telnet

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/process"
)

// ActiveConnections tracks connections that have claimed a name.
var ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "holoauth_telnet_connections",
	Help: "Number of telnet connections with a claimed player name",
})

// DroppedMessages counts outcome lines dropped because an outbox was full
// or its connection was gone.
var DroppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "holoauth_telnet_dropped_messages_total",
	Help: "Total number of outcome messages that could not be queued",
})

// RegisterMetrics registers telnet metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ActiveConnections)
	reg.MustRegister(DroppedMessages)
}

// Hub tracks live connections by identity and delivers outcome messages to
// them. It implements process.Messenger.
type Hub struct {
	catalog *message.Catalog
	logger  *slog.Logger

	mu    sync.RWMutex
	conns map[identity.Key]*Connection
}

var _ process.Messenger = (*Hub)(nil)

// NewHub creates a Hub rendering through catalog.
func NewHub(catalog *message.Catalog, logger *slog.Logger) *Hub {
	if catalog == nil {
		catalog = message.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		catalog: catalog,
		logger:  logger,
		conns:   make(map[identity.Key]*Connection),
	}
}

// Catalog returns the message catalog.
func (h *Hub) Catalog() *message.Catalog {
	return h.catalog
}

// Claim binds c's name to c. It fails when another connection already
// holds the same identity.
func (h *Hub) Claim(c *Connection) bool {
	key := identity.Normalize(c.Name())
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.conns[key]; taken {
		return false
	}
	h.conns[key] = c
	ActiveConnections.Inc()
	return true
}

// Release unbinds c if it still holds its name.
func (h *Hub) Release(c *Connection) {
	key := identity.Normalize(c.Name())
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[key] == c {
		delete(h.conns, key)
		ActiveConnections.Dec()
	}
}

// Len returns the number of claimed connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send renders key for player and queues it on the connection that ran the
// process. Outcomes never follow the name to a later connection; messages
// for closed connections and for players without one are dropped.
func (h *Hub) Send(ctx context.Context, player process.Player, key message.Key) {
	conn, ok := player.(*Connection)
	if !ok {
		DroppedMessages.Inc()
		h.logger.DebugContext(ctx, "dropping message for player without connection",
			"player", player.Name(),
			"message", key.String())
		return
	}

	text := h.catalog.Render(key, map[string]string{"name": player.Name()})
	if !conn.enqueue(text) {
		DroppedMessages.Inc()
		h.logger.DebugContext(ctx, "dropping message, connection closed or outbox full",
			"player", player.Name(),
			"conn_id", conn.ID().String(),
			"message", key.String())
	}
}
