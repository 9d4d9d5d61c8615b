package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/studentregistry/internal/app/models"
)

// eventBufferSize bounds the events waiting for the hub loop
const eventBufferSize = 256

// Hub maintains the set of active feed clients and broadcasts student events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Events waiting to be broadcast
	broadcast chan models.StudentEvent

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed by Close to stop Run
	done      chan struct{}
	closeOnce sync.Once

	// Guards clients for readers outside the Run loop
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.StudentEvent, eventBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "student_feed").Logger(),
	}
}

// Run handles client registrations and broadcasts until Close is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Close stops Run and disconnects every client
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// Publish queues event for broadcast. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(event models.StudentEvent) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.logger.Warn().Str("type", string(event.Type)).Msg("Student feed queue full, dropping event")
	}
}

// ClientsCount returns the number of connected clients
func (h *Hub) ClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.logger.Info().Str("addr", client.conn.RemoteAddr().String()).Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info().Str("addr", client.conn.RemoteAddr().String()).Msg("Client unregistered")
	}
}

// broadcastEvent runs on the Run goroutine; slow clients are dropped in place
func (h *Hub) broadcastEvent(event models.StudentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to marshal event for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, they might be slow or disconnected
			delete(h.clients, client)
			close(client.send)
			h.logger.Warn().Str("addr", client.conn.RemoteAddr().String()).Msg("Dropped slow client")
		}
	}

	h.logger.Debug().Str("type", string(event.Type)).Int("clientCount", len(h.clients)).Msg("Event broadcasted")
}
