package sse

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Client represents a connected SSE client, registered to a single run.
type Client struct {
	ID           string
	RunID        uuid.UUID
	EventChannel chan StreamEvent
}

type broadcastMsg struct {
	runID uuid.UUID
	event StreamEvent
}

// Hub manages SSE client connections grouped into per-run rooms. Events
// for a run reach only that run's clients, in the order they were
// broadcast. A client whose buffer fills is closed rather than skipped,
// so a connected client never observes a sequence gap.
type Hub struct {
	rooms      map[uuid.UUID]map[string]*Client
	broadcast  chan broadcastMsg
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	shutdown   chan struct{}
	wg         sync.WaitGroup
}

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[string]*Client),
		broadcast:  make(chan broadcastMsg, BroadcastBufferSize),
		register:   make(chan *Client, ClientChannelBuffer),
		unregister: make(chan *Client, ClientChannelBuffer),
		shutdown:   make(chan struct{}),
	}
}

// Start starts the hub's broadcast loop
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	close(h.shutdown)
	h.wg.Wait()

	h.mu.Lock()
	for _, room := range h.rooms {
		for _, client := range room {
			close(client.EventChannel)
		}
	}
	h.rooms = make(map[uuid.UUID]map[string]*Client)
	h.mu.Unlock()
}

// run is the main broadcast loop
func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.RunID]
			if !ok {
				room = make(map[string]*Client)
				h.rooms[client.RunID] = room
			}
			room[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			room := h.rooms[msg.runID]
			var lagging []*Client
			for _, client := range room {
				select {
				case client.EventChannel <- msg.event:
				default:
					lagging = append(lagging, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range lagging {
				slog.Warn(LogMsgClientLagging,
					"client_id", client.ID,
					"run_id", client.RunID)
				h.remove(client)
			}

		case <-h.shutdown:
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[client.RunID]
	if !ok {
		return
	}
	if _, ok := room[client.ID]; !ok {
		return
	}
	close(client.EventChannel)
	delete(room, client.ID)
	if len(room) == 0 {
		delete(h.rooms, client.RunID)
	}
}

// Register adds a new client to the run's room
func (h *Hub) Register(runID uuid.UUID) *Client {
	client := &Client{
		ID:           uuid.New().String(),
		RunID:        runID,
		EventChannel: make(chan StreamEvent, ClientEventBuffer),
	}

	select {
	case h.register <- client:
	case <-h.shutdown:
		close(client.EventChannel)
	}
	return client
}

// Unregister removes a client from its room
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.shutdown:
	}
}

// Broadcast sends an event to every client in the run's room
func (h *Hub) Broadcast(runID uuid.UUID, event StreamEvent) {
	select {
	case h.broadcast <- broadcastMsg{runID: runID, event: event}:
	case <-h.shutdown:
	}
}

// ClientCount returns the number of connected clients across all rooms
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

// RoomCount returns the number of clients in a single run's room
func (h *Hub) RoomCount(runID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[runID])
}
