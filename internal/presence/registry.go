// ABOUTME: In-memory presence registry mapping users to their live connections
// ABOUTME: Fans events out to every open tab of a user, dropping on slow consumers

package presence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// connBufferSize is the channel buffer for each connection (64 events).
	connBufferSize = 64
)

// Event is a named payload pushed to live connections. The websocket layer
// marshals it as {"event": ..., "data": ...}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Registry tracks which users currently hold live connections. A user with
// several open tabs has several connections under one identifier; events
// addressed to the user reach all of them. Identifiers are user IDs for
// staff and client IDs for chat widget users.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]map[string]chan *Event // identifier -> connID -> ch
	logger *slog.Logger
}

// NewRegistry creates a registry. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[string]map[string]chan *Event),
		logger: logger.With("component", "presence"),
	}
}

// Join registers a live connection for the given identifier. Returns a
// channel that receives events addressed to the user and a connection ID
// for later removal. The connection is automatically cleaned up when ctx
// is cancelled.
func (r *Registry) Join(ctx context.Context, identifier string) (<-chan *Event, string) {
	connID := uuid.New().String()
	ch := make(chan *Event, connBufferSize)

	r.mu.Lock()
	if _, ok := r.conns[identifier]; !ok {
		r.conns[identifier] = make(map[string]chan *Event)
	}
	r.conns[identifier][connID] = ch
	r.mu.Unlock()

	r.logger.Debug("connection joined",
		"identifier", identifier,
		"conn_id", connID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		r.Leave(identifier, connID)
	}()

	return ch, connID
}

// Leave removes a connection and closes its channel.
func (r *Registry) Leave(identifier, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.conns[identifier]
	if !ok {
		return
	}

	ch, exists := conns[connID]
	if !exists {
		return
	}

	delete(conns, connID)
	close(ch)

	// Clean up empty identifier entries
	if len(conns) == 0 {
		delete(r.conns, identifier)
	}

	r.logger.Debug("connection left",
		"identifier", identifier,
		"conn_id", connID)
}

// EmitToUser sends an event to every live connection of the identifier.
// Delivery is best-effort: the return value reports whether the user had
// at least one connection, not whether any tab consumed the event.
// Non-blocking: events are dropped for connections whose channels are full.
// Sends happen under the read lock so Leave cannot close a channel while
// a send is in flight; they never block, so the lock is held briefly.
func (r *Registry) EmitToUser(identifier string, event *Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.conns[identifier]
	if !ok || len(conns) == 0 {
		return false
	}

	for _, ch := range conns {
		select {
		case ch <- event:
			// Sent
		default:
			// Connection channel full — drop event for this tab
			r.logger.Debug("dropped event for slow connection",
				"identifier", identifier,
				"event", event.Name)
		}
	}

	return true
}

// Online reports whether the identifier has at least one live connection.
func (r *Registry) Online(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[identifier]) > 0
}

// Connections returns the number of live connections for an identifier.
func (r *Registry) Connections(identifier string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[identifier])
}

// Close shuts down the registry and closes all connection channels.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identifier, conns := range r.conns {
		for connID, ch := range conns {
			close(ch)
			delete(conns, connID)
		}
		delete(r.conns, identifier)
	}

	r.logger.Debug("registry closed")
}
