package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/simrunner/internal/cli"
	"github.com/zeusync/simrunner/internal/config"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim/remote"
	"github.com/zeusync/simrunner/internal/injector"
)

const shutdownTimeout = 5 * time.Second

// RunBridge parses args and serves dry-run engines until ctx is done.
// ready, when not nil, receives the bound addresses once listening.
func RunBridge(ctx context.Context, outW io.Writer, args []string, ready func(BridgeAddrs)) error {
	opts, shouldExit, err := cli.ParseBridge("simbridge", args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	cfg := opts.Config

	srv, cleanup, err := injector.InitializeBridge(cfg)
	if err != nil {
		return fmt.Errorf("setup bridge: %w", err)
	}
	defer cleanup()
	logger := log.Provide().Named("bridge")

	var (
		addrs  BridgeAddrs
		httpLn net.Listener
		quicLn *quic.Listener
	)
	if cfg.Bridge.Listen != "" {
		if httpLn, err = net.Listen("tcp", cfg.Bridge.Listen); err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Bridge.Listen, err)
		}
		addrs.WebSocket = httpLn.Addr().String()
	}
	if cfg.Bridge.QUICListen != "" {
		if quicLn, err = listenQUIC(cfg.Bridge); err != nil {
			if httpLn != nil {
				_ = httpLn.Close()
			}
			return err
		}
		addrs.QUIC = quicLn.Addr().String()
	}

	g, ctx := errgroup.WithContext(ctx)
	if httpLn != nil {
		hs := &http.Server{
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		g.Go(func() error {
			if err := hs.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve websocket: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
		logger.Info("WebSocket bridge listening", log.String("address", "ws://"+addrs.WebSocket+remote.WebsocketPath))
	}
	if quicLn != nil {
		g.Go(func() error {
			return srv.ServeQUIC(ctx, quicLn)
		})
		g.Go(func() error {
			<-ctx.Done()
			return quicLn.Close()
		})
		logger.Info("QUIC bridge listening", log.String("address", "quic://"+addrs.QUIC))
	}

	if ready != nil {
		ready(addrs)
	}
	err = g.Wait()
	logger.Info("Bridge stopped", log.Int64("connections_served", srv.Served()))
	return err
}

// BridgeAddrs are the addresses the bridge is bound to.
type BridgeAddrs struct {
	WebSocket string
	QUIC      string
}

func listenQUIC(b config.Bridge) (*quic.Listener, error) {
	var (
		tlsConf *tls.Config
		err     error
	)
	if b.CertFile != "" {
		tlsConf, err = remote.LoadTLS(b.CertFile, b.KeyFile)
	} else {
		tlsConf, err = remote.SelfSignedTLS()
	}
	if err != nil {
		return nil, err
	}
	return remote.ListenQUIC(b.QUICListen, tlsConf)
}
