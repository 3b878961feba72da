package remote

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
)

// Transport defaults
const (
	DefaultMaxFrameSize = 4 << 20
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultKeepAlive    = 15 * time.Second

	// WebsocketPath is where Server.Handler expects the upgrade request.
	WebsocketPath = "/engine"
	HealthPath    = "/health"

	alpn = "simrunner-engine"
)

// Conn carries whole frames in both directions. Send may be called
// concurrently; Receive is called from a single goroutine.
type Conn interface {
	Send(frame []byte) error
	Receive() ([]byte, error)
	Close() error
	RemoteAddr() string
}

// Dial connects to an engine url. ws:// and wss:// use a websocket at
// WebsocketPath unless the url names a path; quic:// opens a QUIC
// connection and a single bidirectional stream. tlsConf is only used for
// quic and may be nil to accept any server certificate.
func Dial(ctx context.Context, rawURL string, tlsConf *tls.Config) (Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse engine url %q", rawURL)
	}
	switch u.Scheme {
	case "ws", "wss":
		if u.Path == "" || u.Path == "/" {
			u.Path = WebsocketPath
		}
		return dialWebsocket(ctx, u.String())
	case "quic":
		return dialQUIC(ctx, u.Host, tlsConf)
	default:
		return nil, errors.Wrapf(ErrUnknownScheme, "%q", u.Scheme)
	}
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func dialWebsocket(ctx context.Context, addr string) (*wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultWriteTimeout}
	conn, resp, err := dialer.DialContext(ctx, addr, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial websocket %s", addr)
	}
	return newWSConn(conn), nil
}

func newWSConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(DefaultMaxFrameSize)
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, errors.Wrap(err, "failed to read frame")
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 << 10,
	WriteBufferSize: 16 << 10,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// quicConn frames compact JSON documents with a trailing newline on one
// stream.
type quicConn struct {
	conn    *quic.Conn
	stream  *quic.Stream
	reader  *bufio.Reader
	writeMu sync.Mutex
	closed  atomic.Bool
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
	}
}

func dialQUIC(ctx context.Context, addr string, tlsConf *tls.Config) (*quicConn, error) {
	if tlsConf == nil {
		tlsConf = ClientTLSConfig()
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "dial quic %s", addr)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, errors.Wrap(err, "open quic stream")
	}
	return newQUICConn(conn, stream), nil
}

func newQUICConn(conn *quic.Conn, stream *quic.Stream) *quicConn {
	return &quicConn{
		conn:   conn,
		stream: stream,
		reader: bufio.NewReaderSize(stream, 64<<10),
	}
}

func (c *quicConn) Send(frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.stream.SetWriteDeadline(time.Now().Add(DefaultWriteTimeout))
	if _, err := c.stream.Write(append(frame, '\n')); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

func (c *quicConn) Receive() ([]byte, error) {
	var frame []byte
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			var appErr *quic.ApplicationError
			if c.closed.Load() || err == io.EOF || errors.As(err, &appErr) {
				return nil, ErrClosed
			}
			return nil, errors.Wrap(err, "failed to read frame")
		}
		frame = append(frame, chunk...)
		if len(frame) > DefaultMaxFrameSize {
			return nil, ErrFrameTooLarge
		}
		if !isPrefix {
			return frame, nil
		}
	}
}

func (c *quicConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "connection closed")
}

func (c *quicConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
