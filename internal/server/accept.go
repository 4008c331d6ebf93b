package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// AcceptLoop listens on deps.Cfg.Addr() and spawns one goroutine per
// accepted connection via ServeConnection, applying admission control
// before each is handed off. It returns when ctx is cancelled, after the
// listener is closed and every in-flight ServeConnection goroutine has
// returned.
func AcceptLoop(ctx context.Context, deps *Deps) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", deps.Cfg.Addr())
	if err != nil {
		return err
	}
	slog.Info("listening", "addr", deps.Cfg.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Warn("accept error", "error", err)
			continue
		}

		if tc, ok := raw.(*net.TCPConn); ok {
			_ = tc.SetKeepAlive(true)
			_ = tc.SetKeepAlivePeriod(30 * time.Second)
		}

		host, _, err := net.SplitHostPort(raw.RemoteAddr().String())
		if err != nil {
			_ = raw.Close()
			continue
		}

		ok, reason := deps.Admission.Admit(host, time.Now())
		if !ok {
			slog.Info("connection rejected", "ip", host, "reason", reason.String())
			_ = raw.Close()
			continue
		}

		g.Go(func() error {
			ServeConnection(deps, raw)
			return nil
		})
	}

	return g.Wait()
}
