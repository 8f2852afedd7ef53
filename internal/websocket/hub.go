package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/rs/zerolog"
)

// Hub tracks the live connections per exam so server-side events (such as
// a violation-breach termination) reach the client even when the trigger
// did not originate from that connection.
type Hub struct {
	log zerolog.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{} // exam id -> connections
}

// NewHub creates an empty connection registry.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   logger.Component(log, "ws_hub"),
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for an exam.
func (h *Hub) Register(examID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[examID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[examID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes a connection. The caller closes it.
func (h *Hub) Unregister(examID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[examID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, examID)
		}
	}
}

// NotifyTerminated pushes a terminated event to every connection of the
// exam. Implements service.Notifier.
func (h *Hub) NotifyTerminated(examID, reason string) {
	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns[examID]))
	for conn := range h.conns[examID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if err := WriteTyped(conn, TerminatedResponse{Event: EventTerminated, Reason: reason}); err != nil {
			h.log.Debug().Err(err).Str("exam_id", examID).Msg("Terminated push failed")
		}
	}
}
