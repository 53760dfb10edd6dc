package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ContestScoreAPI/internal/metrics"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventScoreRecorded    = "score_recorded"
	EventSubmissionJudged = "submission_judged"
	EventResultsPublished = "results_published"
)

const writeWait = 5 * time.Second

// Event is one update pushed to the clients watching a contest.
type Event struct {
	Type         string     `json:"type"`
	ContestID    uuid.UUID  `json:"contestId"`
	SubmissionID *uuid.UUID `json:"submissionId,omitempty"`
	Data         any        `json:"data,omitempty"`
	At           time.Time  `json:"at"`
}

// Broadcaster delivers events to everyone watching a contest.
type Broadcaster interface {
	Broadcast(ev Event)
}

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Hub fans events out to the websocket clients of each contest.
type Hub struct {
	mu        sync.Mutex
	clients   map[uuid.UUID]map[Conn]bool
	broadcast chan Event
	done      chan struct{}
	stopOnce  sync.Once
	log       *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		clients:   make(map[uuid.UUID]map[Conn]bool),
		broadcast: make(chan Event, 64),
		done:      make(chan struct{}),
		log:       logger.With(slog.String("component", "realtime")),
	}
	go h.run()
	return h
}

// Register adds a client to a contest feed.
func (h *Hub) Register(contestID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[contestID] == nil {
		h.clients[contestID] = make(map[Conn]bool)
	}
	h.clients[contestID][conn] = true
	metrics.LiveConnections.Inc()
}

// Unregister removes a client; unknown clients are ignored.
func (h *Hub) Unregister(contestID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(contestID, conn)
}

func (h *Hub) remove(contestID uuid.UUID, conn Conn) {
	clients, ok := h.clients[contestID]
	if !ok || !clients[conn] {
		return
	}
	delete(clients, conn)
	if len(clients) == 0 {
		delete(h.clients, contestID)
	}
	metrics.LiveConnections.Dec()
}

// Broadcast queues an event. It never blocks the caller: when the queue is
// full the event is dropped.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case <-h.done:
	case h.broadcast <- ev:
	default:
		h.log.Warn("realtime queue full, dropping event",
			slog.String("type", ev.Type),
			slog.String("contest", ev.ContestID.String()))
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[ev.ContestID] {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("websocket write failed", sl.Err(err))
			_ = conn.Close()
			h.remove(ev.ContestID, conn)
		}
	}
}

// Clients returns the number of clients watching a contest.
func (h *Hub) Clients(contestID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[contestID])
}

// Shutdown stops delivery and closes every client connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	op := "realtime.Shutdown"
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for contestID, clients := range h.clients {
		for conn := range clients {
			_ = conn.Close()
			h.remove(contestID, conn)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("force exit %s: %w", op, err)
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Broadcast(Event) {}
