// Package ws implements the throttled, echo-suppressing websocket
// fan-out of spec.md §4.10: every connection subscribes to the signal
// bus broadcast and streams events back to its client, each tagged
// DEFAULT (first-in-window immediate, then coalesced) or ALWAYS
// (always coalesced, released every tick).
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/midigurdy/core/internal/signalbus"
	"github.com/midigurdy/core/internal/version"
)

// DefaultWindow is the throttle window of spec.md §4.10.
const DefaultWindow = 500 * time.Millisecond

// Policy tags event names as ALWAYS (true) or DEFAULT (false, the
// zero value). spec.md §4.10 leaves the concrete table to the
// deployment ("a subset of the state-event vocabulary"); callers build
// one with NewPolicy and pass it to NewHub.
type Policy struct {
	always map[string]bool
}

// NewPolicy builds a Policy marking the given names ALWAYS; every
// other name defaults to DEFAULT.
func NewPolicy(alwaysNames ...string) Policy {
	p := Policy{always: make(map[string]bool, len(alwaysNames))}
	for _, n := range alwaysNames {
		p.always[n] = true
	}

	return p
}

func (p Policy) isAlways(name string) bool { return p.always[name] }

func (p Policy) knows(name string) bool {
	_, ok := p.always[name]
	return ok
}

// resolveName applies spec.md §4.10's coercion rule: an event outside
// the table that starts with "active:preset:" is folded into the
// single summary name.
func (p Policy) resolveName(name string) string {
	if p.knows(name) || name == "active:preset:changed" {
		return name
	}

	if strings.HasPrefix(name, "active:preset:") {
		return "active:preset:changed"
	}

	return name
}

// Hub upgrades HTTP connections to websocket and fans out bus events
// to each, per spec.md §4.10 and §6's sysinfo handshake.
type Hub struct {
	bus      *signalbus.Bus
	policy   Policy
	window   time.Duration
	upgrader websocket.Upgrader
	logger   *log.Logger
	info     version.Info
}

// NewHub builds a Hub. logger may be nil.
func NewHub(bus *signalbus.Bus, policy Policy, logger *log.Logger) *Hub {
	return &Hub{
		bus:    bus,
		policy: policy,
		window: DefaultWindow,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		info:   version.Current(),
	}
}

// ServeHTTP upgrades the connection, performs the sysinfo handshake
// (spec.md §6: client sends {data:{id}}, server replies
// {name:"sysinfo", data:{name,version,client_id}}), then streams
// throttled events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("ws: upgrade failed", "err", err)
		}

		return
	}

	c := newConnection(conn, h.bus, h.policy, h.window, h.logger)
	defer c.close()

	var handshake struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	_ = conn.ReadJSON(&handshake) // best-effort; absence doesn't block the greeting

	if err := conn.WriteJSON(sysinfoMessage(h.info, c.id)); err != nil {
		if h.logger != nil {
			h.logger.Warn("ws: sysinfo write failed", "err", err)
		}

		return
	}

	c.run()
}

func sysinfoMessage(info version.Info, clientID string) wsMessage {
	return wsMessage{
		Name: "sysinfo",
		Data: signalbus.Payload{
			"name":      info.Name,
			"version":   info.Version,
			"client_id": clientID,
		},
	}
}

type wsMessage struct {
	Name string            `json:"name"`
	Data signalbus.Payload `json:"data"`
}

type pendingEntry struct {
	data  signalbus.Payload
	since time.Time
}

// connection is one client's subscription: a RegisterAll handler that
// only ever touches the mutex-guarded maps (never blocks or writes to
// the socket directly, since Bus.Emit calls handlers synchronously),
// and a run loop that flushes due entries to the socket.
type connection struct {
	id     string
	conn   *websocket.Conn
	bus    *signalbus.Bus
	token  int
	policy Policy
	window time.Duration
	logger *log.Logger

	mu            sync.Mutex
	lastImmediate map[string]time.Time
	pending       map[string]pendingEntry

	outgoing  chan wsMessage
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, bus *signalbus.Bus, policy Policy, window time.Duration, logger *log.Logger) *connection {
	c := &connection{
		id:            uuid.NewString(),
		conn:          conn,
		bus:           bus,
		policy:        policy,
		window:        window,
		logger:        logger,
		lastImmediate: make(map[string]time.Time),
		pending:       make(map[string]pendingEntry),
		outgoing:      make(chan wsMessage, 64),
	}

	c.token = bus.RegisterAll(c.onEvent)

	return c
}

// onEvent is the bus handler. Echo-suppression (spec.md §8 property 9)
// drops anything carrying this connection's own client id; everything
// else is either sent immediately or coalesced, per policy.
func (c *connection) onEvent(_ context.Context, name string, data signalbus.Payload) {
	if id, ok := data["client_id"].(string); ok && id == c.id {
		return
	}

	name = c.policy.resolveName(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.policy.isAlways(name) {
		c.pending[name] = pendingEntry{data: data, since: time.Now()}
		return
	}

	last, sent := c.lastImmediate[name]
	if !sent || time.Since(last) >= c.window {
		c.lastImmediate[name] = time.Now()
		delete(c.pending, name)
		c.enqueueLocked(name, data)

		return
	}

	entry, exists := c.pending[name]
	if !exists {
		entry.since = time.Now()
	}

	entry.data = data
	c.pending[name] = entry
}

// enqueueLocked must be called with c.mu held.
func (c *connection) enqueueLocked(name string, data signalbus.Payload) {
	select {
	case c.outgoing <- wsMessage{Name: name, Data: data}:
	default:
		if c.logger != nil {
			c.logger.Warn("ws: outgoing queue full, dropping event", "client", c.id, "event", name)
		}
	}
}

// flushPending releases every pending entry due this tick: ALWAYS
// entries unconditionally, DEFAULT entries once they've aged past the
// throttle window (spec.md §4.10, §8 property 10).
func (c *connection) flushPending() {
	c.mu.Lock()

	due := make(map[string]signalbus.Payload)
	now := time.Now()

	for name, entry := range c.pending {
		if c.policy.isAlways(name) || now.Sub(entry.since) >= c.window {
			due[name] = entry.data
			delete(c.pending, name)

			if !c.policy.isAlways(name) {
				c.lastImmediate[name] = now
			}
		}
	}

	for name, data := range due {
		c.enqueueLocked(name, data)
	}

	c.mu.Unlock()
}

// run drives the write pump, the pending-timer (spec.md §5's
// per-client periodic flush task), and a read pump whose only job is
// to detect the client going away. It blocks until the connection
// closes.
func (c *connection) run() {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()

	readErr := make(chan struct{})
	go func() {
		defer close(readErr)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readErr:
			return
		case <-ticker.C:
			c.flushPending()
		case msg := <-c.outgoing:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.bus.Unregister(c.token)
		c.conn.Close()
	})
}
