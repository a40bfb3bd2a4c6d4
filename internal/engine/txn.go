package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/mvcc"
	"github.com/tidesql/tidesql/internal/sql/sqlerr"
	"github.com/tidesql/tidesql/internal/sql/types"
	"github.com/tidesql/tidesql/internal/storage"
)

// Txn is one transaction's relational view. All schema and row access
// goes through the underlying MVCC transaction, so uncommitted work is
// private and rollback is free.
type Txn struct {
	eng *Engine
	mtx *mvcc.Txn
}

func (t *Txn) ID() uint64      { return t.mtx.ID() }
func (t *Txn) Commit() error   { return t.mtx.Commit() }
func (t *Txn) Rollback() error { return t.mtx.Rollback() }

// CreateTable validates the schema, assigns a fresh table id and stores
// the schema record. The engine mutex serializes concurrent schema
// changes.
func (t *Txn) CreateTable(tbl catalog.Table) error {
	if err := tbl.Validate(); err != nil {
		return err
	}
	t.eng.mu.Lock()
	exists, err := t.schemaExists(tbl.Name)
	t.eng.mu.Unlock()
	if err != nil {
		return err
	}
	if exists {
		return sqlerr.DuplicateTable(tbl.Name)
	}
	id, err := t.eng.nextTableID()
	if err != nil {
		return err
	}
	tbl.ID = id
	data, err := json.Marshal(&tbl)
	if err != nil {
		return fmt.Errorf("engine: marshal schema: %w", err)
	}
	return t.mtx.Put(schemaKey(tbl.Name), data)
}

func (t *Txn) schemaExists(name string) (bool, error) {
	_, err := t.mtx.Get(schemaKey(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DropTable removes the schema record. Rows keep their storage under
// the old table id; since ids are never reused they are unreachable
// from then on.
func (t *Txn) DropTable(name string) error {
	if _, err := t.GetTable(name); err != nil {
		return err
	}
	return t.mtx.Delete(schemaKey(name))
}

func (t *Txn) GetTable(name string) (*catalog.Table, error) {
	data, err := t.mtx.Get(schemaKey(name))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, sqlerr.NoSuchTable(name)
	}
	if err != nil {
		return nil, err
	}
	var tbl catalog.Table
	if err := json.Unmarshal(data, &tbl); err != nil {
		return nil, fmt.Errorf("engine: unmarshal schema for %s: %w", name, err)
	}
	return &tbl, nil
}

// ListTables returns every visible table name in ascending order.
func (t *Txn) ListTables() ([]string, error) {
	it, err := t.mtx.ScanPrefix(schemaPrefix())
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var names []string
	for it.Next() {
		names = append(names, schemaKeyName(it.Key()))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// Insert stores one full positional row, allocating its row id.
func (t *Txn) Insert(tbl *catalog.Table, row types.Row) error {
	if err := tbl.ValidateRow(row); err != nil {
		return err
	}
	rowID, err := t.eng.nextRowID(tbl.ID)
	if err != nil {
		return err
	}
	data, err := EncodeRow(tbl.Columns, row)
	if err != nil {
		return err
	}
	return t.mtx.Put(rowKey(tbl.ID, rowID), data)
}

// UpdateRow replaces the row at rowID. The old version is stamped
// deleted and the new one written in its place, so other transactions
// keep seeing the old row until we commit.
func (t *Txn) UpdateRow(tbl *catalog.Table, rowID uint64, row types.Row) error {
	if err := tbl.ValidateRow(row); err != nil {
		return err
	}
	data, err := EncodeRow(tbl.Columns, row)
	if err != nil {
		return err
	}
	key := rowKey(tbl.ID, rowID)
	if err := t.mtx.Delete(key); err != nil {
		return err
	}
	return t.mtx.Put(key, data)
}

func (t *Txn) DeleteRow(tbl *catalog.Table, rowID uint64) error {
	return t.mtx.Delete(rowKey(tbl.ID, rowID))
}

// Scan iterates the table's visible rows in row id order, which is
// insertion order.
func (t *Txn) Scan(tbl *catalog.Table) (*RowIter, error) {
	it, err := t.mtx.ScanPrefix(rowPrefix(tbl.ID))
	if err != nil {
		return nil, err
	}
	return &RowIter{tbl: tbl, it: it}, nil
}

// RowIter decodes stored rows as it walks a table scan.
type RowIter struct {
	tbl *catalog.Table
	it  *mvcc.Iterator
	row types.Row
	id  uint64
	err error
}

func (r *RowIter) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.it.Next() {
		return false
	}
	key := r.it.Key()
	if len(key) != 17 {
		r.err = fmt.Errorf("engine: malformed row key %q", key)
		return false
	}
	row, err := DecodeRow(r.tbl.Columns, r.it.Value())
	if err != nil {
		r.err = fmt.Errorf("engine: decode row %d of %s: %w", rowKeyID(key), r.tbl.Name, err)
		return false
	}
	r.id = rowKeyID(key)
	r.row = row
	return true
}

func (r *RowIter) Row() types.Row { return r.row }
func (r *RowIter) RowID() uint64  { return r.id }

func (r *RowIter) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.it.Err()
}

func (r *RowIter) Close() error { return r.it.Close() }
