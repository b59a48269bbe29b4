package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/client"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
)

// Hub fans settlement events out to subscribed dashboards
type Hub struct {
	clients   map[*client.Client]bool
	clientsMu sync.RWMutex

	broadcast  chan *models.SettlementEvent
	register   chan *client.Client
	unregister chan *client.Client
	done       chan struct{}

	// Metrics
	totalConnections int64
	totalMessages    int64
	droppedClients   int64
	metricsMu        sync.Mutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client.Client]bool),
		broadcast:  make(chan *models.SettlementEvent, 256),
		register:   make(chan *client.Client),
		unregister: make(chan *client.Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	fmt.Println("✓ Hub started")
	defer close(h.done)

	go h.reportMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case event := <-h.broadcast:
			h.broadcastSettlement(event)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *client.Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *client.Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastSettlement queues a settlement for every matching client
func (h *Hub) BroadcastSettlement(event *models.SettlementEvent) {
	select {
	case h.broadcast <- event:
	default:
		fmt.Println("⚠️  [Hub] broadcast buffer full, dropping settlement")
	}
}

func (h *Hub) registerClient(c *client.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = true

	h.metricsMu.Lock()
	h.totalConnections++
	h.metricsMu.Unlock()

	fmt.Printf("[Hub] client %s connected (total: %d)\n", c.ID, len(h.clients))
}

func (h *Hub) unregisterClient(c *client.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		fmt.Printf("[Hub] client %s disconnected (total: %d)\n", c.ID, len(h.clients))
	}
}

// broadcastSettlement sends to matching clients and drops the slow ones
func (h *Hub) broadcastSettlement(event *models.SettlementEvent) {
	h.clientsMu.RLock()
	clients := make([]*client.Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	message := models.ServerMessage{
		Type:      models.MessageTypeSettlement,
		Payload:   event,
		Timestamp: time.Now(),
	}

	sent := 0
	var slow []*client.Client
	for _, c := range clients {
		if !c.MatchesFilter(event) {
			continue
		}

		if c.TrySend(message) {
			sent++
		} else {
			slow = append(slow, c)
		}
	}

	// the loop goroutine owns the map, so drop inline rather than via Unregister
	for _, c := range slow {
		fmt.Printf("⚠️  [Hub] client %s buffer full, disconnecting\n", c.ID)
		h.unregisterClient(c)
	}

	h.metricsMu.Lock()
	h.totalMessages += int64(sent)
	h.droppedClients += int64(len(slow))
	h.metricsMu.Unlock()
}

// GetMetrics returns hub metrics
func (h *Hub) GetMetrics() map[string]interface{} {
	h.clientsMu.RLock()
	activeClients := len(h.clients)
	h.clientsMu.RUnlock()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()

	return map[string]interface{}{
		"active_clients":     activeClients,
		"total_connections":  h.totalConnections,
		"total_messages":     h.totalMessages,
		"dropped_clients":    h.droppedClients,
		"broadcast_capacity": cap(h.broadcast),
		"broadcast_usage":    len(h.broadcast),
	}
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	fmt.Printf("🛑 [Hub] shutting down (%d active clients)\n", len(h.clients))

	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}

func (h *Hub) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := h.GetMetrics()
			fmt.Printf("📊 [Hub] clients=%d total_connections=%d messages=%d dropped=%d\n",
				metrics["active_clients"],
				metrics["total_connections"],
				metrics["total_messages"],
				metrics["dropped_clients"])
		}
	}
}
