// Package realtime keeps the board in sync with every other session: it owns
// one logical push-channel connection, applies inbound change events to the
// board store and enforces the keepalive and reconnection policy.
package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/events"
	"github.com/haulplan/haulplan/core/logger"
	"github.com/haulplan/haulplan/core/metrics"
	"github.com/haulplan/haulplan/internal/eventbus"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StateFailed is terminal: the configured maximum number of consecutive
	// failed attempts was exhausted. A manual retry means a new Client.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// StateEvent is published on the bus whenever the connection state changes.
type StateEvent struct {
	State   State
	Attempt int
}

// MessageEvent is published after an inbound frame was applied to the board.
type MessageEvent struct {
	Event   string
	Action  string
	Applied int
}

// Client drives the push channel for one board session.
type Client struct {
	cfg       Config
	transport Transport
	store     board.Store
	bus       eventbus.EventBus
	sink      metrics.Sink
	log       logger.Logger

	state atomic.Int32
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	mu   sync.Mutex
	conn Conn
}

// New creates a Client. bus and sink may be nil.
func New(cfg Config, t Transport, store board.Store, bus eventbus.EventBus, sink metrics.Sink, log logger.Logger) *Client {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Client{
		cfg:       cfg,
		transport: t,
		store:     store,
		bus:       bus,
		sink:      sink,
		log:       log,
		done:      make(chan struct{}),
	}
}

// State returns the current connection state.
func (c *Client) State() State { return State(c.state.Load()) }

// Start runs the connection loop in the background until Close is called,
// the context is cancelled or the attempt budget is exhausted.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Close performs a clean close and stops reconnection. It blocks until the
// connection loop has exited.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close(true)
	}
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	delay := time.Duration(c.cfg.ReconnectDelayMS) * time.Millisecond
	attempts := 0
	for {
		if c.stopped(ctx) {
			c.setState(StateDisconnected, attempts)
			return
		}
		c.setState(StateConnecting, attempts)
		conn, err := c.transport.Open(ctx)
		if err != nil {
			attempts++
			var cerr *CredentialError
			if errors.As(err, &cerr) {
				c.log.Warnf("ticket fetch failed (attempt %d/%d): %v", attempts, c.cfg.MaxAttempts, cerr.Err)
			} else {
				c.log.Warnf("channel open failed (attempt %d/%d): %v", attempts, c.cfg.MaxAttempts, err)
			}
			if attempts >= c.cfg.MaxAttempts {
				c.log.Errorf("giving up after %d attempts", attempts)
				c.setState(StateFailed, attempts)
				return
			}
			if !c.wait(ctx, delay) {
				c.setState(StateDisconnected, attempts)
				return
			}
			continue
		}

		attempts = 0
		c.setConn(conn)
		c.setState(StateConnected, 0)
		clean := c.serve(ctx, conn)
		c.setConn(nil)
		_ = conn.Close(clean)

		if clean || c.stopped(ctx) {
			c.setState(StateDisconnected, 0)
			return
		}
		attempts++
		if attempts >= c.cfg.MaxAttempts {
			c.setState(StateFailed, attempts)
			return
		}
		if !c.wait(ctx, delay) {
			c.setState(StateDisconnected, attempts)
			return
		}
	}
}

// serve pumps the connection until it dies, running the keepalive ticker as
// a second goroutine owned by the connection's lifetime. It reports whether
// the connection ended cleanly.
func (c *Client) serve(ctx context.Context, conn Conn) bool {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.keepalive(conn, stop)
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, ErrCleanClosed) || c.stopped(ctx) {
				return true
			}
			c.log.Warnf("channel read: %v", err)
			return false
		}
		c.dispatch(data)
	}
}

func (c *Client) keepalive(conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(c.cfg.KeepaliveSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(events.Ping); err != nil {
				c.log.Debugf("keepalive write: %v", err)
				return
			}
		}
	}
}

// dispatch decodes one inbound frame and applies it to the board. Unknown
// event types are skipped; a malformed frame is logged and dropped, never
// fatal.
func (c *Client) dispatch(data []byte) {
	msg, err := events.Decode(data)
	if err != nil {
		c.log.Warnf("dropping frame: %v", err)
		return
	}
	switch {
	case msg.IsPong():
		c.log.Debugf("keepalive ack")
		return
	case msg.Event == events.EventConnectionEstablished:
		c.log.Infof("channel established")
		return
	}
	applied := events.Apply(c.store, msg)
	if applied > 0 {
		if err := c.sink.RecordEventApplied(msg.Event, msg.Action); err != nil {
			c.log.Warnf("record event: %v", err)
		}
	}
	if c.bus != nil {
		c.bus.Publish(MessageEvent{Event: msg.Event, Action: msg.Action, Applied: applied})
	}
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) setState(s State, attempt int) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.log.Infof("channel %s", s)
	if err := c.sink.RecordChannelEvent(metrics.ChannelEvent{State: s.String(), Attempt: attempt, Time: time.Now()}); err != nil {
		c.log.Warnf("record channel event: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(StateEvent{State: s, Attempt: attempt})
	}
}

func (c *Client) stopped(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	return ctx.Err() != nil
}

// wait sleeps for the reconnect delay, returning false if the client was
// stopped in the meantime.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}
