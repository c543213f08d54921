// Package ws opens the push channel over a WebSocket, exchanging a
// short-lived ticket for each connection attempt.
package ws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haulplan/haulplan/core/logger"
	"github.com/haulplan/haulplan/core/realtime"
)

// TicketSource obtains the single-use channel credential over the ordinary
// request/response API. Implemented by the rest client.
type TicketSource interface {
	FetchTicket(ctx context.Context) (string, error)
}

// Transport dials the channel endpoint. The scheme is upgraded from the
// backend URL: https backends get wss, plain http gets ws.
type Transport struct {
	baseURL string
	path    string
	tickets TicketSource
	dialer  *websocket.Dialer
	log     logger.Logger
}

// New creates a Transport for the given backend base URL and channel path.
func New(baseURL, path string, tickets TicketSource, log logger.Logger) *Transport {
	return &Transport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		path:    path,
		tickets: tickets,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     log,
	}
}

// Open fetches a ticket and dials the channel with it as the sole query
// parameter. A ticket failure is reported as *realtime.CredentialError so the
// client applies its normal backoff.
func (t *Transport) Open(ctx context.Context) (realtime.Conn, error) {
	ticket, err := t.tickets.FetchTicket(ctx)
	if err != nil {
		return nil, &realtime.CredentialError{Err: err}
	}

	target, err := t.channelURL(ticket)
	if err != nil {
		return nil, err
	}
	conn, resp, err := t.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}
	t.log.Debugf("channel dialed: %s", t.path)
	return &wsConn{conn: conn}, nil
}

func (t *Transport) channelURL(ticket string) (string, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + t.path
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String(), nil
}

// wsConn adapts a gorilla connection to the realtime.Conn contract. Gorilla
// allows one concurrent writer, so writes are serialized here.
type wsConn struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, realtime.ErrCleanClosed
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(clean bool) error {
	if clean {
		c.wmu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view unmounted"))
		c.wmu.Unlock()
	}
	return c.conn.Close()
}
