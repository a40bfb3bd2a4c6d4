// Package sqlclient is a synchronous client for the tidewire protocol.
package sqlclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidesql/tidesql/internal/sql/executor"
	"github.com/tidesql/tidesql/server/tidewire"
)

// Client sends one request at a time. Exec may be called from multiple
// goroutines; calls serialize on the connection, and because the server
// binds a session to the connection they then share transaction state.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	id   atomic.Uint64

	// Per-request read/write deadline; zero means none.
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// SetRWTimeout bounds each Exec so a dead server cannot hang the
// client forever.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Exec(sql string) (*executor.Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) ExecContext(ctx context.Context, sql string) (*executor.Result, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("sqlclient: not connected")
	}

	reqID := c.id.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	// Clear the deadline afterwards so an idle connection does not expire.
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	if err := tidewire.WriteFrame(c.conn, tidewire.ExecuteRequest{ID: reqID, SQL: sql}); err != nil {
		return nil, err
	}

	var resp tidewire.ExecuteResponse
	if err := tidewire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}

	if resp.ID != reqID {
		return nil, fmt.Errorf("sqlclient: response id mismatch: got=%d want=%d", resp.ID, reqID)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Result, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
