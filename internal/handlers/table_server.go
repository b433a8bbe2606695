// internal/handlers/table_server.go
package handlers

import (
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "uno"

const (
	defaultOutBuffer = 64
	maxMessageBytes  = 64 << 10
)

// ServerOptions configures a TableServer.
type ServerOptions struct {
	// MessagesPerSecond and Burst bound inbound messages per connection.
	MessagesPerSecond float64
	Burst             int
	// VerifyToken resolves a reconnect token to a player id. When nil, rejoining
	// by player id needs no token.
	VerifyToken    func(token string) (uuid.UUID, error)
	OriginPatterns []string
	OutBuffer      int
}

// TableServer connects websocket sessions to the table.
type TableServer struct {
	Table *game.Table

	opts   ServerOptions
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// client is one websocket session. OutChan is drained by the write pump in
// FIFO order.
type client struct {
	sessionID uuid.UUID
	OutChan   chan []byte

	kickOnce   sync.Once
	kicked     chan struct{}
	kickCode   websocket.StatusCode
	kickReason string

	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewTableServer binds the table's SendFn to the server's sessions.
func NewTableServer(tbl *game.Table, logger *logrus.Logger, opts ServerOptions) *TableServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.MessagesPerSecond)
	}
	if opts.OutBuffer <= 0 {
		opts.OutBuffer = defaultOutBuffer
	}
	if len(opts.OriginPatterns) == 0 {
		opts.OriginPatterns = []string{"*"}
	}
	s := &TableServer{
		Table:   tbl,
		opts:    opts,
		logger:  logger,
		clients: make(map[uuid.UUID]*client),
	}
	tbl.Mu.Lock()
	tbl.SendFn = s.send
	tbl.Mu.Unlock()
	return s
}

func (s *TableServer) register() *client {
	c := &client{
		sessionID: uuid.New(),
		OutChan:   make(chan []byte, s.opts.OutBuffer),
		kicked:    make(chan struct{}),
		limiter:   rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst),
	}
	c.log = s.logger.WithField("session", c.sessionID.String())
	s.mu.Lock()
	s.clients[c.sessionID] = c
	s.mu.Unlock()
	return c
}

func (s *TableServer) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.sessionID)
	s.mu.Unlock()
}

func (s *TableServer) lookup(sessionID uuid.UUID) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[sessionID]
}

// ConnectionCount returns the number of open sessions.
func (s *TableServer) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// send is the table's SendFn. It runs with the table lock held, so it only
// queues.
func (s *TableServer) send(sessionID uuid.UUID, ev game.Event) {
	c := s.lookup(sessionID)
	if c == nil {
		return
	}
	c.enqueue(game.EncodeEvent(ev))
	if ev.Type == game.EventForceDisconnect {
		c.kick(ForcedDisconnectError, ev.Message)
	}
}

// enqueue never blocks. A client that cannot keep up is disconnected, since
// skipping an event would break ordering.
func (c *client) enqueue(data []byte) {
	select {
	case c.OutChan <- data:
	default:
		c.log.Warn("Outbound queue full, dropping connection")
		c.kick(SlowConsumerError, "too slow")
	}
}

func (c *client) kick(code websocket.StatusCode, reason string) {
	c.kickOnce.Do(func() {
		c.kickCode = code
		c.kickReason = reason
		close(c.kicked)
	})
}
