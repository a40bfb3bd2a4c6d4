package mvcc

import (
	"bytes"
	"fmt"

	"github.com/tidesql/tidesql/internal/alias/bx"
	"github.com/tidesql/tidesql/internal/storage"
)

// Txn is a single transaction's view of the store. Reads resolve each
// key to its newest visible version; writes append versions stamped with
// this transaction's id. Not safe for concurrent use.
type Txn struct {
	mgr           *Manager
	id            uint64
	activeAtBegin map[uint64]struct{}
	done          bool
}

func (t *Txn) ID() uint64 { return t.id }

// visible decides whether a version written by vid exists for this
// transaction: our own writes always do, and otherwise only writes by
// transactions that committed before we began.
func (t *Txn) visible(vid uint64) bool {
	if vid == t.id {
		return true
	}
	if vid > t.id {
		return false
	}
	if _, wasActive := t.activeAtBegin[vid]; wasActive {
		return false
	}
	return t.mgr.stateOf(vid) == StateCommitted
}

// Version values carry a deletion stamp ahead of the payload: the id of
// the transaction that deleted this version, or 0 while it is live.
func encodeVersion(deletedBy uint64, payload []byte) []byte {
	val := make([]byte, 8+len(payload))
	bx.PutU64(val[:8], deletedBy)
	copy(val[8:], payload)
	return val
}

// resolve finds the newest visible version of userKey. A nil verKey
// means no version is visible at all; callers still have to check the
// deletion stamp.
func (t *Txn) resolve(userKey []byte) (verKey []byte, deletedBy uint64, payload []byte, err error) {
	it, err := t.mgr.store.ScanPrefix(userKey)
	if err != nil {
		return nil, 0, nil, err
	}
	defer it.Close()

	var bestKey, bestVal []byte
	var bestVid uint64
	for it.Next() {
		k := it.Key()
		if len(k) < len(userKey)+8 {
			return nil, 0, nil, fmt.Errorf("mvcc: malformed version key %q", k)
		}
		vid := bx.U64BE(k[len(k)-8:])
		if !t.visible(vid) {
			continue
		}
		if bestKey == nil || vid > bestVid {
			bestKey = append([]byte(nil), k...)
			bestVal = append([]byte(nil), it.Value()...)
			bestVid = vid
		}
	}
	if err := it.Err(); err != nil {
		return nil, 0, nil, err
	}
	if bestKey == nil {
		return nil, 0, nil, nil
	}
	if len(bestVal) < 8 {
		return nil, 0, nil, fmt.Errorf("mvcc: short version value for %q", userKey)
	}
	return bestKey, bx.U64(bestVal[:8]), bestVal[8:], nil
}

// Get returns the payload of the newest visible, undeleted version of
// userKey, or storage.ErrKeyNotFound.
func (t *Txn) Get(userKey []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	verKey, deletedBy, payload, err := t.resolve(userKey)
	if err != nil {
		return nil, err
	}
	if verKey == nil {
		return nil, storage.ErrKeyNotFound
	}
	if deletedBy != 0 && t.visible(deletedBy) {
		return nil, storage.ErrKeyNotFound
	}
	return payload, nil
}

// Put writes a version of userKey owned by this transaction. Writing
// the same key twice in one transaction replaces the first version.
func (t *Txn) Put(userKey, payload []byte) error {
	if t.done {
		return ErrTxnDone
	}
	return t.mgr.store.Put(versionKey(userKey, t.id), encodeVersion(0, payload))
}

// Delete stamps the visible version of userKey as deleted by this
// transaction. The version itself stays in place: if we roll back, the
// stamp is ignored and the row is back. Deleting an absent key is a
// no-op.
func (t *Txn) Delete(userKey []byte) error {
	if t.done {
		return ErrTxnDone
	}
	verKey, deletedBy, payload, err := t.resolve(userKey)
	if err != nil {
		return err
	}
	if verKey == nil {
		return nil
	}
	if deletedBy != 0 && t.visible(deletedBy) {
		return nil
	}
	return t.mgr.store.Put(verKey, encodeVersion(t.id, payload))
}

// ScanPrefix iterates the visible, undeleted versions under prefix in
// ascending user-key order.
func (t *Txn) ScanPrefix(prefix []byte) (*Iterator, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	inner, err := t.mgr.store.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	return &Iterator{txn: t, inner: inner}, nil
}

func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	if err := t.mgr.finish(t.id, StateCommitted); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Rollback marks this transaction aborted. Its versions and deletion
// stamps stay written but no transaction will ever see them.
func (t *Txn) Rollback() error {
	if t.done {
		return ErrTxnDone
	}
	if err := t.mgr.finish(t.id, StateAborted); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Iterator groups the raw version stream by user key and emits each
// key's newest visible version, skipping keys whose visible version
// carries a visible deletion stamp.
type Iterator struct {
	txn   *Txn
	inner storage.Iterator
	key   []byte
	value []byte
	err   error
	done  bool

	haveAhead bool
	aheadKey  []byte
	aheadVal  []byte
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for !it.done {
		var curUser []byte
		var bestVal []byte
		var bestVid uint64
		var bestSet bool

		for {
			var k, v []byte
			switch {
			case it.haveAhead:
				k, v = it.aheadKey, it.aheadVal
				it.haveAhead = false
			case it.inner.Next():
				k = append([]byte(nil), it.inner.Key()...)
				v = append([]byte(nil), it.inner.Value()...)
			default:
				if err := it.inner.Err(); err != nil {
					it.err = err
					return false
				}
				it.done = true
			}
			if it.done {
				break
			}
			if len(k) < 8 || len(v) < 8 {
				it.err = fmt.Errorf("mvcc: malformed version record %q", k)
				return false
			}
			user := k[:len(k)-8]
			if curUser == nil {
				curUser = user
			} else if !bytes.Equal(user, curUser) {
				it.haveAhead, it.aheadKey, it.aheadVal = true, k, v
				break
			}
			vid := bx.U64BE(k[len(k)-8:])
			if it.txn.visible(vid) && (!bestSet || vid > bestVid) {
				bestVid, bestVal, bestSet = vid, v, true
			}
		}

		if curUser == nil {
			return false
		}
		if bestSet {
			deletedBy := bx.U64(bestVal[:8])
			if deletedBy == 0 || !it.txn.visible(deletedBy) {
				it.key = curUser
				it.value = bestVal[8:]
				return true
			}
		}
	}
	return false
}

func (it *Iterator) Key() []byte   { return it.key }
func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Err()
}

func (it *Iterator) Close() error { return it.inner.Close() }

var _ storage.Iterator = (*Iterator)(nil)
