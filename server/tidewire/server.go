// Package tidewire is the TCP serving layer: length-prefixed JSON
// frames carrying one request and one response per statement, with one
// database session per connection.
package tidewire

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tidesql/tidesql"
)

// DefaultMaxConns bounds concurrently served connections when the
// config does not say otherwise.
const DefaultMaxConns = 128

type Config struct {
	Addr     string
	MaxConns int
}

// Run serves db on cfg.Addr until SIGINT or SIGTERM.
func Run(cfg Config, db *tidesql.DB) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	pool, err := ants.NewPool(maxConns)
	if err != nil {
		ln.Close()
		return fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("tidesql server listening on %s", ln.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				log.Printf("accept: %v", err)
				continue
			}
			if err := pool.Submit(func() { Handle(ctx, conn, db) }); err != nil {
				log.Printf("submit: %v", err)
				_ = conn.Close()
			}
		}
	})
	return g.Wait()
}

// Handle serves one connection until the client disconnects or ctx is
// done. The connection gets its own session, so BEGIN holds across
// requests; whatever transaction is left open rolls back on disconnect.
func Handle(ctx context.Context, conn net.Conn, db *tidesql.DB) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Time{})

	sess := db.Session()
	defer sess.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			return
		}

		res, err := sess.Exec(req.SQL)
		if err != nil {
			if err := WriteFrame(conn, ExecuteResponse{ID: req.ID, Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		if err := WriteFrame(conn, ExecuteResponse{ID: req.ID, Result: res}); err != nil {
			return
		}
	}
}
