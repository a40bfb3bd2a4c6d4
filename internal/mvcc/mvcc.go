// Package mvcc layers multi-version concurrency control over a storage
// engine. Every write becomes a new version keyed by the writing
// transaction's id; readers filter versions by visibility instead of
// taking locks, so rollback never has to undo anything.
//
// Keys beginning with 'N' (id counter) or 'T' (transaction states) are
// reserved for the manager's own metadata. Client keys must be
// prefix-free: no client key may be a strict prefix of another.
package mvcc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tidesql/tidesql/internal/alias/bx"
	"github.com/tidesql/tidesql/internal/storage"
)

var ErrTxnDone = errors.New("mvcc: transaction already finished")

// State is the lifecycle of a transaction. Active and its writes are
// persisted before the first version lands, so a crash leaves enough on
// disk to decide every version's fate on reopen.
type State uint8

const (
	StateActive State = iota
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

var keyNextID = []byte("N")

func keyTxnState(id uint64) []byte {
	return bx.AppendU64BE([]byte("T"), id)
}

func versionKey(userKey []byte, id uint64) []byte {
	out := make([]byte, 0, len(userKey)+8)
	out = append(out, userKey...)
	return bx.AppendU64BE(out, id)
}

// Manager hands out transaction ids and tracks transaction states. Ids
// are never reused; id 0 is reserved so a zero deletion stamp can mean
// "not deleted".
type Manager struct {
	store  storage.Engine
	mu     sync.Mutex
	nextID uint64
	active map[uint64]struct{}
	status map[uint64]State
}

// NewManager loads transaction metadata from the store. Any transaction
// persisted as active belonged to a previous process that died holding
// it open, so it is flipped to aborted; its orphaned versions become
// permanently invisible.
func NewManager(store storage.Engine) (*Manager, error) {
	m := &Manager{
		store:  store,
		active: make(map[uint64]struct{}),
		status: make(map[uint64]State),
	}
	v, err := store.Get(keyNextID)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("mvcc: load id counter: %w", err)
	}
	if err == nil {
		m.nextID = bx.U64(v)
	}

	it, err := store.ScanPrefix([]byte("T"))
	if err != nil {
		return nil, fmt.Errorf("mvcc: scan transaction states: %w", err)
	}
	var orphans []uint64
	for it.Next() {
		k, val := it.Key(), it.Value()
		if len(k) != 9 || len(val) != 1 {
			it.Close()
			return nil, fmt.Errorf("mvcc: malformed transaction state record")
		}
		id := bx.U64BE(k[1:])
		st := State(val[0])
		if st == StateActive {
			st = StateAborted
			orphans = append(orphans, id)
		}
		m.status[id] = st
	}
	if err := it.Err(); err != nil {
		it.Close()
		return nil, fmt.Errorf("mvcc: scan transaction states: %w", err)
	}
	it.Close()

	for _, id := range orphans {
		if err := store.Put(keyTxnState(id), []byte{byte(StateAborted)}); err != nil {
			return nil, fmt.Errorf("mvcc: abort orphan transaction %d: %w", id, err)
		}
	}
	return m, nil
}

// Begin opens a transaction. The set of transactions active at this
// moment is captured so their versions stay invisible even if they
// commit later.
func (m *Manager) Begin() (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if err := m.store.Put(keyNextID, bx.AppendU64(nil, m.nextID)); err != nil {
		m.nextID--
		return nil, fmt.Errorf("mvcc: persist id counter: %w", err)
	}
	if err := m.store.Put(keyTxnState(id), []byte{byte(StateActive)}); err != nil {
		return nil, fmt.Errorf("mvcc: persist transaction state: %w", err)
	}

	snapshot := make(map[uint64]struct{}, len(m.active))
	for a := range m.active {
		snapshot[a] = struct{}{}
	}
	m.active[id] = struct{}{}
	m.status[id] = StateActive

	return &Txn{mgr: m, id: id, activeAtBegin: snapshot}, nil
}

func (m *Manager) stateOf(id uint64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[id]
	if !ok {
		// unknown ids are treated as aborted; safer than resurrecting
		// versions whose state record is missing
		return StateAborted
	}
	return st
}

// finish durably records the final state. The state byte lands before
// the flush, so a crash in between replays as active and gets aborted
// on reopen.
func (m *Manager) finish(id uint64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(keyTxnState(id), []byte{byte(st)}); err != nil {
		return fmt.Errorf("mvcc: persist transaction state: %w", err)
	}
	if st == StateCommitted {
		if err := m.store.Flush(); err != nil {
			return fmt.Errorf("mvcc: flush on commit: %w", err)
		}
	}
	m.status[id] = st
	delete(m.active, id)
	return nil
}
