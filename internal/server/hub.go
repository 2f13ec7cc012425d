// Package server coordinates client registration, addressed delivery, and
// connection cleanup for the GoChat WebSocket system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-rooms/internal/metrics"
	"github.com/Tyrowin/gochat-rooms/internal/protocol"
)

// Hub manages all WebSocket client connections, keyed by connection ID, and
// delivers outbound events to explicit recipient sets. It has no notion of
// rooms; the coordinator computes who should receive what.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewHub creates and initializes a new Hub instance with all necessary channels
// and client map. The returned Hub is ready to manage WebSocket connections.
// m may be nil.
func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
		metrics:    m,
	}
}

// Register hands a client to the hub, which starts its pumps. It returns
// false if the hub has already shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel. It is safe to call
// more than once and after shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Send encodes ev once and queues it for every recipient. Unknown recipients
// are skipped; recipients whose buffer is full are dropped from the hub.
func (h *Hub) Send(recipients []string, ev protocol.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		h.log.Error("failed to encode outbound event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	h.deliver(recipients, payload)
}

func (h *Hub) deliver(recipients []string, payload []byte) {
	var clientsToRemove []*Client
	for _, id := range recipients {
		client, ok := h.lookup(id)
		if !ok {
			continue
		}
		delivered, registered := h.safeSend(client, payload)
		if registered && !delivered {
			h.metrics.DeliveryDropped()
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.removeFailedClients(clientsToRemove)
}

func (h *Hub) lookup(id string) (*Client, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	client, ok := h.clients[id]
	return client, ok
}

// safeSend queues message for client without blocking. registered is false
// when the client was unregistered after it was looked up; delivered is false
// when it was or its buffer is full.
func (h *Hub) safeSend(client *Client, message []byte) (delivered, registered bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("recovered from panic in safeSend", zap.Any("panic", r))
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	current, exists := h.clients[client.id]
	if !exists || current != client || client.closed {
		return false, false
	}

	select {
	case client.send <- message:
		return true, true
	default:
		return false, true
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine and
// returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			h.metrics.ConnectionOpened()
			h.log.Info("client registered",
				zap.String("conn_id", client.id),
				zap.String("addr", client.addr),
				zap.Int("clients", clientCount))

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if current, ok := h.clients[client.id]; ok && current == client {
				delete(h.clients, client.id)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				h.metrics.ConnectionClosed()
				h.log.Info("client unregistered",
					zap.String("conn_id", client.id),
					zap.String("addr", client.addr),
					zap.Int("clients", clientCount))
			} else {
				h.mutex.Unlock()
			}
		}
	}
}

// removeFailedClients removes clients that failed to receive messages and closes their channels
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if current, exists := h.clients[client.id]; exists && current == client {
			delete(h.clients, client.id)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			h.metrics.ConnectionClosed()
			h.log.Warn("client removed due to full send buffer",
				zap.String("conn_id", client.id),
				zap.String("addr", client.addr))
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients detaches every client and closes its connection so the
// pumps exit.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		delete(h.clients, id)
		client.closed = true
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		h.metrics.ConnectionClosed()
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection", zap.String("addr", client.addr), zap.Error(err))
			}
		}
	}

	h.log.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
