package sqlclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidesql/tidesql"
	"github.com/tidesql/tidesql/internal/sql/types"
	"github.com/tidesql/tidesql/server/tidewire"
)

// startServer runs a loopback server on an ephemeral port and returns
// its address.
func startServer(t *testing.T) string {
	t.Helper()

	db, err := tidesql.Open(tidesql.ModeMemory, "")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go tidewire.Handle(ctx, conn, db)
		}
	}()
	t.Cleanup(func() {
		cancel()
		ln.Close()
		db.Close()
	})
	return ln.Addr().String()
}

func TestClient_ExecRoundTrip(t *testing.T) {
	addr := startServer(t)

	cli, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer cli.Close()
	cli.SetRWTimeout(5 * time.Second)

	res, err := cli.Exec("CREATE TABLE t (v INT)")
	require.NoError(t, err)
	require.Equal(t, "created table t", res.Message)

	res, err = cli.Exec("INSERT INTO t VALUES (1), (2), (3)")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.AffectedRows)

	res, err = cli.Exec("SELECT sum(v) FROM t")
	require.NoError(t, err)
	require.Equal(t, []string{"sum"}, res.Columns)
	require.Equal(t, []types.Row{{types.FloatValue(6)}}, res.Rows)
}

func TestClient_ServerErrorsSurface(t *testing.T) {
	addr := startServer(t)

	cli, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Exec("SELECT * FROM missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")

	// The connection survives statement errors.
	_, err = cli.Exec("SHOW TABLES")
	require.NoError(t, err)
}

func TestClient_TransactionSticksToConnection(t *testing.T) {
	addr := startServer(t)

	cli, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer cli.Close()

	_, err = cli.Exec("CREATE TABLE t (v INT)")
	require.NoError(t, err)

	res, err := cli.Exec("BEGIN")
	require.NoError(t, err)
	require.Contains(t, res.Message, "began transaction")

	_, err = cli.Exec("INSERT INTO t VALUES (1)")
	require.NoError(t, err)

	// A second client gets its own session and must not see the
	// uncommitted row.
	other, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer other.Close()

	res, err = other.Exec("SELECT count(*) FROM t")
	require.NoError(t, err)
	require.Equal(t, []types.Row{{types.IntValue(0)}}, res.Rows)

	_, err = cli.Exec("COMMIT")
	require.NoError(t, err)

	res, err = other.Exec("SELECT count(*) FROM t")
	require.NoError(t, err)
	require.Equal(t, []types.Row{{types.IntValue(1)}}, res.Rows)
}

func TestClient_DialFailure(t *testing.T) {
	_, err := Dial("127.0.0.1:1", 50*time.Millisecond)
	require.Error(t, err)
}
