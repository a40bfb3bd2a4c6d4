package storage

import (
	"bytes"
	"sort"
	"sync"
)

// Memory is a map-backed Engine. It keeps a sorted key index so prefix
// scans run in key order without sorting on every call. Safe for
// concurrent use.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	keys   []string // sorted
	closed bool
}

var _ Engine = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	k := string(key)
	if _, ok := m.data[k]; !ok {
		m.insertKey(k)
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[k] = v
	return nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	k := string(key)
	if _, ok := m.data[k]; !ok {
		return nil
	}
	delete(m.data, k)
	m.removeKey(k)
	return nil
}

func (m *Memory) ScanPrefix(prefix []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	p := string(prefix)
	start := sort.SearchStrings(m.keys, p)
	var pairs []kvPair
	for i := start; i < len(m.keys); i++ {
		k := m.keys[i]
		if !bytes.HasPrefix([]byte(k), prefix) {
			break
		}
		v := m.data[k]
		val := make([]byte, len(v))
		copy(val, v)
		pairs = append(pairs, kvPair{key: []byte(k), value: val})
	}
	return &sliceIterator{pairs: pairs}, nil
}

func (m *Memory) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.data = nil
	m.keys = nil
	return nil
}

func (m *Memory) insertKey(k string) {
	i := sort.SearchStrings(m.keys, k)
	m.keys = append(m.keys, "")
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
}

func (m *Memory) removeKey(k string) {
	i := sort.SearchStrings(m.keys, k)
	if i < len(m.keys) && m.keys[i] == k {
		m.keys = append(m.keys[:i], m.keys[i+1:]...)
	}
}

type kvPair struct {
	key   []byte
	value []byte
}

// sliceIterator serves a scan from a materialized snapshot, so writes that
// land mid-iteration never show up.
type sliceIterator struct {
	pairs []kvPair
	pos   int
	cur   kvPair
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.pairs) {
		return false
	}
	it.cur = it.pairs[it.pos]
	it.pos++
	return true
}

func (it *sliceIterator) Key() []byte   { return it.cur.key }
func (it *sliceIterator) Value() []byte { return it.cur.value }
func (it *sliceIterator) Err() error    { return nil }
func (it *sliceIterator) Close() error  { return nil }
