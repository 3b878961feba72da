package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

// EngineFactory builds the engine served to one connection.
type EngineFactory func() (sim.Engine, error)

// Server exposes engines to remote clients. Every connection gets its own
// engine from the factory, closed when the connection ends.
type Server struct {
	factory EngineFactory
	logger  log.Log
	active  atomic.Int64
	served  atomic.Int64
}

func NewServer(factory EngineFactory, logger log.Log) *Server {
	if logger == nil {
		logger = log.Provide()
	}
	return &Server{factory: factory, logger: logger.Named("bridge")}
}

// Active returns the number of connections being served.
func (s *Server) Active() int64 { return s.active.Load() }

// Served returns the number of connections accepted so far.
func (s *Server) Served() int64 { return s.served.Load() }

// Handler serves websocket clients at WebsocketPath and connection
// counters at HealthPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebsocketPath, s.handleWebsocket)
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy","active_connections":%d,"total_connections":%d}`, s.Active(), s.Served())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", log.Error(err))
		return
	}
	if err = s.ServeConn(r.Context(), newWSConn(conn)); err != nil {
		s.logger.Warn("Connection ended with error", log.Error(err))
	}
}

// ListenQUIC opens a QUIC listener for ServeQUIC.
func ListenQUIC(addr string, tlsConf *tls.Config) (*quic.Listener, error) {
	ln, err := quic.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("listen quic %s: %w", addr, err)
	}
	return ln, nil
}

// ServeQUIC accepts connections until ctx is done or the listener fails.
// Each connection is expected to open exactly one stream.
func (s *Server) ServeQUIC(ctx context.Context, ln *quic.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		qc, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("accept quic: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			stream, err := qc.AcceptStream(ctx)
			if err != nil {
				s.logger.Warn("No stream opened", log.String("remote_addr", qc.RemoteAddr().String()), log.Error(err))
				_ = qc.CloseWithError(0, "no stream")
				return
			}
			if err = s.ServeConn(ctx, newQUICConn(qc, stream)); err != nil {
				s.logger.Warn("Connection ended with error", log.Error(err))
			}
		}()
	}
}

// ServeConn answers requests on conn until the peer disconnects or ctx is
// done. viewer.start runs concurrently with other requests, which are
// handled in arrival order.
func (s *Server) ServeConn(ctx context.Context, conn Conn) error {
	engine, err := s.factory()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sess := &session{
		engine:  engine,
		conn:    conn,
		logger:  s.logger.With(log.String("remote_addr", conn.RemoteAddr())),
		handles: make(map[string]any),
	}
	s.active.Add(1)
	s.served.Add(1)
	sess.logger.Info("Client connected")

	var viewers sync.WaitGroup
	defer func() {
		cancel()
		_ = conn.Close()
		viewers.Wait()
		sess.closeEngine()
		s.active.Add(-1)
		sess.logger.Info("Client disconnected")
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		frame, err := conn.Receive()
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		var req Request
		if err = json.Unmarshal(frame, &req); err != nil {
			sess.logger.Warn("Dropping malformed request", log.Error(err))
			continue
		}
		if req.Method == sim.OpViewerStart {
			viewers.Add(1)
			go func() {
				defer viewers.Done()
				sess.reply(req, nil, sess.startViewer(ctx, req))
			}()
			continue
		}
		result, err := sess.dispatch(ctx, req)
		sess.reply(req, result, err)
	}
}

type session struct {
	engine sim.Engine
	conn   Conn
	logger log.Log

	mu      sync.Mutex
	handles map[string]any
	closed  bool
}

func (s *session) reply(req Request, result any, err error) {
	resp := Response{ID: req.ID, Error: toWire(err)}
	if err == nil && result != nil {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			resp.Error = &Error{Code: codeInternal, Message: mErr.Error()}
		} else {
			resp.Result = raw
		}
	}
	if err != nil {
		s.logger.Debug("Call failed", log.String("method", req.Method), log.Error(err))
	}
	frame, mErr := encodeFrame(resp)
	if mErr != nil {
		s.logger.Error("Encode response", log.Error(mErr))
		return
	}
	defer framePool.Put(frame)
	if sErr := s.conn.Send(frame.Bytes()); sErr != nil && !errors.Is(sErr, ErrClosed) {
		s.logger.Warn("Send response", log.String("method", req.Method), log.Error(sErr))
	}
}

func (s *session) register(obj any) string {
	h := uuid.NewString()
	s.mu.Lock()
	s.handles[h] = obj
	s.mu.Unlock()
	return h
}

func lookup[T any](s *session, handle string) (T, error) {
	s.mu.Lock()
	obj, ok := s.handles[handle]
	s.mu.Unlock()
	v, typed := obj.(T)
	if !ok || !typed {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}
	return v, nil
}

func decode[T any](req Request) (T, error) {
	var p T
	if len(req.Params) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrBadParams, req.Method, err)
	}
	return p, nil
}

func (s *session) closeEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	clear(s.handles)
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("Engine close", log.Error(err))
	}
}

func (s *session) startViewer(ctx context.Context, req Request) error {
	v, err := lookup[sim.Viewer](s, req.Handle)
	if err != nil {
		return err
	}
	return v.Start(ctx)
}

func (s *session) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case sim.OpInit:
		p, err := decode[initParams](req)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Init(ctx, p.Options)

	case sim.OpGenerate:
		p, err := decode[generateParams](req)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Generate(ctx, p.Prompt)

	case sim.OpScene:
		p, err := decode[sceneParams](req)
		if err != nil {
			return nil, err
		}
		sc, err := s.engine.NewScene(ctx, p.Options)
		if err != nil {
			return nil, err
		}
		res := sceneResult{Handle: s.register(sc), ID: sc.ID()}
		if v := sc.Viewer(); v != nil {
			res.Viewer = s.register(v)
		}
		return res, nil

	case MethodClose:
		s.closeEngine()
		return nil, nil

	case sim.OpAddEntity, sim.OpAddCamera, sim.OpBuild, sim.OpStep:
		return s.dispatchScene(ctx, req)

	case sim.OpViewerStop:
		v, err := lookup[sim.Viewer](s, req.Handle)
		if err != nil {
			return nil, err
		}
		return nil, v.Stop()

	case sim.OpStartRecording, sim.OpRender, sim.OpStopRecording:
		return s.dispatchCamera(ctx, req)

	default:
		return s.dispatchEntity(ctx, req)
	}
}

func (s *session) dispatchScene(ctx context.Context, req Request) (any, error) {
	sc, err := lookup[sim.Scene](s, req.Handle)
	if err != nil {
		return nil, err
	}
	switch req.Method {
	case sim.OpAddEntity:
		p, err := decode[addEntityParams](req)
		if err != nil {
			return nil, err
		}
		var opts []sim.EntityOption
		if p.Material != nil {
			opts = append(opts, sim.WithMaterial(*p.Material))
		}
		ent, err := sc.AddEntity(ctx, p.Morph, opts...)
		if err != nil {
			return nil, err
		}
		return entityResult{Handle: s.register(ent), ID: ent.ID(), NumDofs: ent.NumDofs()}, nil
	case sim.OpAddCamera:
		p, err := decode[addCameraParams](req)
		if err != nil {
			return nil, err
		}
		cam, err := sc.AddCamera(ctx, p.Options)
		if err != nil {
			return nil, err
		}
		return cameraResult{Handle: s.register(cam), ID: cam.ID()}, nil
	case sim.OpBuild:
		if err = sc.Build(ctx); err != nil {
			return nil, err
		}
		return builtResult{Built: sc.IsBuilt()}, nil
	default:
		return nil, sc.Step(ctx)
	}
}

func (s *session) dispatchCamera(ctx context.Context, req Request) (any, error) {
	cam, err := lookup[sim.Camera](s, req.Handle)
	if err != nil {
		return nil, err
	}
	switch req.Method {
	case sim.OpStartRecording:
		return nil, cam.StartRecording(ctx)
	case sim.OpRender:
		return cam.Render(ctx)
	default:
		p, err := decode[stopRecordingParams](req)
		if err != nil {
			return nil, err
		}
		return cam.StopRecording(ctx, p.Filename, p.FPS)
	}
}

func (s *session) dispatchEntity(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case sim.OpJoint, sim.OpLink, sim.OpSetKp, sim.OpSetKv, sim.OpSetForceRange,
		sim.OpSetPosition, sim.OpControlPosition, sim.OpControlVelocity, sim.OpControlForce,
		sim.OpGetControlForce, sim.OpIK, sim.OpPlanPath:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	ent, err := lookup[sim.Entity](s, req.Handle)
	if err != nil {
		return nil, err
	}

	switch req.Method {
	case sim.OpJoint, sim.OpLink:
		p, err := decode[nameParams](req)
		if err != nil {
			return nil, err
		}
		if req.Method == sim.OpJoint {
			return ent.Joint(ctx, p.Name)
		}
		return ent.Link(ctx, p.Name)
	case sim.OpIK:
		p, err := decode[ikParams](req)
		if err != nil {
			return nil, err
		}
		return ent.InverseKinematics(ctx, p.Link, p.Pos, p.Quat)
	case sim.OpPlanPath:
		p, err := decode[planParams](req)
		if err != nil {
			return nil, err
		}
		return ent.PlanPath(ctx, p.Goal)
	}

	p, err := decode[dofsParams](req)
	if err != nil {
		return nil, err
	}
	switch req.Method {
	case sim.OpSetKp:
		return nil, ent.SetDofsKp(ctx, p.Values, p.Dofs)
	case sim.OpSetKv:
		return nil, ent.SetDofsKv(ctx, p.Values, p.Dofs)
	case sim.OpSetForceRange:
		return nil, ent.SetDofsForceRange(ctx, p.Values, p.Upper, p.Dofs)
	case sim.OpSetPosition:
		return nil, ent.SetDofsPosition(ctx, p.Values, p.Dofs)
	case sim.OpControlPosition:
		return nil, ent.ControlDofsPosition(ctx, p.Values, p.Dofs)
	case sim.OpControlVelocity:
		return nil, ent.ControlDofsVelocity(ctx, p.Values, p.Dofs)
	case sim.OpControlForce:
		return nil, ent.ControlDofsForce(ctx, p.Values, p.Dofs)
	default:
		return ent.DofsControlForce(ctx, p.Dofs)
	}
}
