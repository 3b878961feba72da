package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

// DefaultCallTimeout bounds every call except viewer.start, which blocks
// for as long as the viewer runs.
const DefaultCallTimeout = 30 * time.Second

// ClientOptions configures a Client.
type ClientOptions struct {
	Logger      log.Log
	CallTimeout time.Duration
	// TLS is used by quic:// urls. Nil accepts any certificate.
	TLS *tls.Config
}

var _ sim.Engine = (*Client)(nil)

// Client implements sim.Engine against a remote Server.
type Client struct {
	conn    Conn
	logger  log.Log
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Response
	err     error
	done    chan struct{}
}

// DialEngine connects to rawURL and returns a client speaking to the engine
// behind it.
func DialEngine(ctx context.Context, rawURL string, opts ClientOptions) (*Client, error) {
	conn, err := Dial(ctx, rawURL, opts.TLS)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, opts), nil
}

// NewClient starts reading responses from conn.
func NewClient(conn Conn, opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = log.Provide()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	c := &Client{
		conn:    conn,
		logger:  opts.Logger.Named("remote").With(log.String("engine_addr", conn.RemoteAddr())),
		timeout: opts.CallTimeout,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		frame, err := c.conn.Receive()
		if err != nil {
			c.fail(err)
			return
		}
		var resp Response
		if err = json.Unmarshal(frame, &resp); err != nil {
			c.logger.Warn("Dropping malformed response", log.Error(err))
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Warn("Response for unknown request", log.String("request_id", resp.ID))
			continue
		}
		ch <- resp
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pending = nil
	if err != ErrClosed {
		c.logger.Error("Engine connection lost", log.Error(err))
	}
}

func (c *Client) call(ctx context.Context, method, handle string, params, result any) error {
	return c.invoke(ctx, c.timeout, method, handle, params, result)
}

// invoke sends one request and waits for its response. A zero timeout
// waits on ctx alone.
func (c *Client) invoke(ctx context.Context, timeout time.Duration, method, handle string, params, result any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := Request{ID: uuid.NewString(), Method: method, Handle: handle}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%s: encode params: %w", method, err)
		}
		req.Params = raw
	}
	frame, err := encodeFrame(req)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}
	defer framePool.Put(frame)

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.pending == nil {
		err = c.err
		c.mu.Unlock()
		return fmt.Errorf("%s: %w: %v", method, ErrClosed, err)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	if err = c.conn.Send(frame.Bytes()); err != nil {
		c.forget(req.ID)
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrClosed)
		}
		if resp.Error != nil {
			return fromWire(method, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err = json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(req.ID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", ErrCallTimeout, method, ctx.Err())
		}
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Init(ctx context.Context, opts sim.InitOptions) error {
	return c.call(ctx, sim.OpInit, "", initParams{Options: opts}, nil)
}

func (c *Client) NewScene(ctx context.Context, opts sim.SceneOptions) (sim.Scene, error) {
	var res sceneResult
	if err := c.call(ctx, sim.OpScene, "", sceneParams{Options: opts}, &res); err != nil {
		return nil, err
	}
	return &scene{client: c, handle: res.Handle, id: res.ID, viewer: res.Viewer}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) error {
	return c.call(ctx, sim.OpGenerate, "", generateParams{Prompt: prompt}, nil)
}

// Close asks the server to release the remote engine and closes the
// connection.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	callErr := c.call(ctx, MethodClose, "", nil, nil)
	err := c.conn.Close()
	<-c.done
	if callErr != nil && !errors.Is(callErr, ErrClosed) {
		return callErr
	}
	return err
}
