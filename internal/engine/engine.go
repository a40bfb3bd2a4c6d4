// Package engine turns the transactional key-value layer into a
// relational one: tables with schemas, positional rows, scans and
// row-level mutations, all inside MVCC transactions.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tidesql/tidesql/internal/alias/bx"
	"github.com/tidesql/tidesql/internal/mvcc"
	"github.com/tidesql/tidesql/internal/storage"
)

// Engine owns the store and the transaction manager. The mutex
// serializes schema changes and id allocation; row reads and writes
// only synchronize through MVCC.
type Engine struct {
	store storage.Engine
	mgr   *mvcc.Manager
	mu    sync.Mutex
}

func New(store storage.Engine) (*Engine, error) {
	mgr, err := mvcc.NewManager(store)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store, mgr: mgr}, nil
}

func (e *Engine) Begin() (*Txn, error) {
	mtx, err := e.mgr.Begin()
	if err != nil {
		return nil, err
	}
	return &Txn{eng: e, mtx: mtx}, nil
}

func (e *Engine) Close() error {
	return e.store.Close()
}

// nextTableID burns one table id. Ids are allocated outside any
// transaction so a rolled back CREATE TABLE cannot hand its id to a
// later one.
func (e *Engine) nextTableID() (uint64, error) {
	return e.bumpCounter(keyNextTableID)
}

// nextRowID burns one row id for the given table.
func (e *Engine) nextRowID(tableID uint64) (uint64, error) {
	return e.bumpCounter(rowIDCounterKey(tableID))
}

func (e *Engine) bumpCounter(key []byte) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n uint64
	v, err := e.store.Get(key)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return 0, fmt.Errorf("engine: load counter: %w", err)
	}
	if err == nil {
		n = bx.U64(v)
	}
	n++
	if err := e.store.Put(key, bx.AppendU64(nil, n)); err != nil {
		return 0, fmt.Errorf("engine: bump counter: %w", err)
	}
	return n, nil
}
