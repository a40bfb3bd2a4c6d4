package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
	"github.com/tidesql/tidesql/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(storage.NewMemory())
	require.NoError(t, err)
	return e
}

func usersTable() catalog.Table {
	return catalog.Table{
		Name: "users",
		Columns: []catalog.Column{
			{Name: "id", Type: types.Integer},
			{Name: "name", Type: types.String, Nullable: true},
		},
	}
}

func TestCreateGetDropTable(t *testing.T) {
	e := newTestEngine(t)

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.CreateTable(usersTable()))

	tbl, err := txn.GetTable("users")
	require.NoError(t, err)
	assert.Equal(t, "users", tbl.Name)
	assert.NotZero(t, tbl.ID)
	assert.Len(t, tbl.Columns, 2)

	err = txn.CreateTable(usersTable())
	assert.ErrorIs(t, err, sqlerr.ErrDuplicateTable)

	require.NoError(t, txn.DropTable("users"))
	_, err = txn.GetTable("users")
	assert.ErrorIs(t, err, sqlerr.ErrNoSuchTable)

	err = txn.DropTable("users")
	assert.ErrorIs(t, err, sqlerr.ErrNoSuchTable)
	require.NoError(t, txn.Commit())
}

func TestListTablesSorted(t *testing.T) {
	e := newTestEngine(t)

	txn, err := e.Begin()
	require.NoError(t, err)
	for _, name := range []string{"zoo", "abc", "mid"} {
		tbl := usersTable()
		tbl.Name = name
		require.NoError(t, txn.CreateTable(tbl))
	}
	names, err := txn.ListTables()
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "mid", "zoo"}, names)
}

func TestInsertScan(t *testing.T) {
	e := newTestEngine(t)

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.CreateTable(usersTable()))
	tbl, err := txn.GetTable("users")
	require.NoError(t, err)

	require.NoError(t, txn.Insert(tbl, types.Row{types.IntValue(1), types.StringValue("ada")}))
	require.NoError(t, txn.Insert(tbl, types.Row{types.IntValue(2), types.NullValue()}))

	it, err := txn.Scan(tbl)
	require.NoError(t, err)
	defer it.Close()

	var rows []types.Row
	for it.Next() {
		rows = append(rows, it.Row().Clone())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 2)
	assert.Equal(t, types.Row{types.IntValue(1), types.StringValue("ada")}, rows[0])
	assert.Equal(t, types.Row{types.IntValue(2), types.NullValue()}, rows[1])
}

func TestInsertValidates(t *testing.T) {
	e := newTestEngine(t)

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.CreateTable(usersTable()))
	tbl, err := txn.GetTable("users")
	require.NoError(t, err)

	err = txn.Insert(tbl, types.Row{types.NullValue(), types.NullValue()})
	assert.ErrorIs(t, err, sqlerr.ErrNotNull)

	err = txn.Insert(tbl, types.Row{types.StringValue("1"), types.NullValue()})
	assert.ErrorIs(t, err, sqlerr.ErrTypeMismatch)
}

func TestUpdateAndDeleteRows(t *testing.T) {
	e := newTestEngine(t)

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.CreateTable(usersTable()))
	tbl, err := txn.GetTable("users")
	require.NoError(t, err)
	require.NoError(t, txn.Insert(tbl, types.Row{types.IntValue(1), types.StringValue("a")}))
	require.NoError(t, txn.Insert(tbl, types.Row{types.IntValue(2), types.StringValue("b")}))

	// find row ids, then mutate
	it, err := txn.Scan(tbl)
	require.NoError(t, err)
	ids := map[int64]uint64{}
	for it.Next() {
		ids[it.Row()[0].Int] = it.RowID()
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())

	require.NoError(t, txn.UpdateRow(tbl, ids[1], types.Row{types.IntValue(1), types.StringValue("A")}))
	require.NoError(t, txn.DeleteRow(tbl, ids[2]))

	it, err = txn.Scan(tbl)
	require.NoError(t, err)
	defer it.Close()
	var rows []types.Row
	for it.Next() {
		rows = append(rows, it.Row().Clone())
	}
	require.NoError(t, it.Err())
	require.Len(t, rows, 1)
	assert.Equal(t, types.Row{types.IntValue(1), types.StringValue("A")}, rows[0])
}

func TestUncommittedTableInvisible(t *testing.T) {
	e := newTestEngine(t)

	t1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, t1.CreateTable(usersTable()))

	t2, err := e.Begin()
	require.NoError(t, err)
	_, err = t2.GetTable("users")
	assert.ErrorIs(t, err, sqlerr.ErrNoSuchTable)

	require.NoError(t, t1.Commit())

	t3, err := e.Begin()
	require.NoError(t, err)
	_, err = t3.GetTable("users")
	require.NoError(t, err)
}

func TestRollbackDiscardsInserts(t *testing.T) {
	e := newTestEngine(t)

	setup, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, setup.CreateTable(usersTable()))
	require.NoError(t, setup.Commit())

	t1, err := e.Begin()
	require.NoError(t, err)
	tbl, err := t1.GetTable("users")
	require.NoError(t, err)
	require.NoError(t, t1.Insert(tbl, types.Row{types.IntValue(1), types.NullValue()}))
	require.NoError(t, t1.Rollback())

	t2, err := e.Begin()
	require.NoError(t, err)
	tbl, err = t2.GetTable("users")
	require.NoError(t, err)
	it, err := t2.Scan(tbl)
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestDroppedTableRowsStayDead(t *testing.T) {
	e := newTestEngine(t)

	t1, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, t1.CreateTable(usersTable()))
	tbl, err := t1.GetTable("users")
	require.NoError(t, err)
	require.NoError(t, t1.Insert(tbl, types.Row{types.IntValue(1), types.NullValue()}))
	require.NoError(t, t1.DropTable("users"))
	require.NoError(t, t1.CreateTable(usersTable()))
	require.NoError(t, t1.Commit())

	// the recreated table has a fresh id, so the old row is unreachable
	t2, err := e.Begin()
	require.NoError(t, err)
	tbl2, err := t2.GetTable("users")
	require.NoError(t, err)
	assert.NotEqual(t, tbl.ID, tbl2.ID)

	it, err := t2.Scan(tbl2)
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestEngineOnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := storage.OpenDisk(dir)
	require.NoError(t, err)
	e, err := New(store)
	require.NoError(t, err)

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.CreateTable(usersTable()))
	tbl, err := txn.GetTable("users")
	require.NoError(t, err)
	require.NoError(t, txn.Insert(tbl, types.Row{types.IntValue(1), types.StringValue("x")}))
	require.NoError(t, txn.Commit())
	require.NoError(t, e.Close())

	store, err = storage.OpenDisk(dir)
	require.NoError(t, err)
	e, err = New(store)
	require.NoError(t, err)
	defer e.Close()

	txn, err = e.Begin()
	require.NoError(t, err)
	tbl, err = txn.GetTable("users")
	require.NoError(t, err)
	it, err := txn.Scan(tbl)
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Next())
	assert.Equal(t, types.Row{types.IntValue(1), types.StringValue("x")}, it.Row())
	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}
