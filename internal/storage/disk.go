package storage

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tidesql/tidesql/internal/alias/bx"
)

const (
	dataFileName = "tidesql.db"
	lockFileName = "tidesql.lock"

	recordHeaderSize = 12 // crc u32 | keyLen u32 | valLen u32

	// valLen sentinel marking a delete record.
	tombstoneLen = ^uint32(0)

	maxKeyLen   = 1 << 20
	maxValueLen = 1 << 30

	readCacheSize = 1024
)

var (
	ErrLocked      = errors.New("storage: data directory locked by another process")
	ErrScanActive  = errors.New("storage: compaction blocked by active scan")
	errCorruptTail = errors.New("storage: corrupt record at log tail")
)

type valueLoc struct {
	offset int64
	size   int64 // full record length
}

// Disk is a log-structured Engine. Every Put and Delete appends one
// crc-framed record to a single data file; an in-memory key directory
// maps each live key to its latest record. Reopening replays the log,
// truncating any half-written tail left by a crash. Compact rewrites
// the file with only the live records.
type Disk struct {
	mu     sync.RWMutex
	dir    string
	f      *os.File
	lock   *os.File
	offset int64
	keydir map[string]valueLoc
	keys   []string // sorted
	cache  *lru.Cache[string, []byte]
	scans  int
	closed bool
}

var _ Engine = (*Disk)(nil)

// OpenDisk opens (or creates) the data file under dir and rebuilds the
// key directory from it. The directory is held exclusively via a lock
// file until Close.
func OpenDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	lock, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("storage: acquire lock: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, dataFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		lock.Close()
		os.Remove(lock.Name())
		return nil, fmt.Errorf("storage: open data file: %w", err)
	}
	cache, err := lru.New[string, []byte](readCacheSize)
	if err != nil {
		f.Close()
		lock.Close()
		os.Remove(lock.Name())
		return nil, err
	}
	d := &Disk{
		dir:    dir,
		f:      f,
		lock:   lock,
		keydir: make(map[string]valueLoc),
		cache:  cache,
	}
	if err := d.rebuild(); err != nil {
		f.Close()
		lock.Close()
		os.Remove(lock.Name())
		return nil, err
	}
	return d, nil
}

// rebuild replays the data file into the key directory. A record that
// fails its checksum, or runs past the end of the file, marks the crash
// point; everything from there on is truncated.
func (d *Disk) rebuild() error {
	info, err := d.f.Stat()
	if err != nil {
		return fmt.Errorf("storage: stat data file: %w", err)
	}
	size := info.Size()
	var off int64
	hdr := make([]byte, recordHeaderSize)
	for off < size {
		key, _, recLen, err := d.readRecordAt(off, hdr, false)
		if err != nil {
			if errors.Is(err, errCorruptTail) {
				if terr := d.f.Truncate(off); terr != nil {
					return fmt.Errorf("storage: truncate corrupt tail: %w", terr)
				}
				break
			}
			return err
		}
		valLen := bx.U32(hdr[8:12])
		k := string(key)
		if valLen == tombstoneLen {
			if _, ok := d.keydir[k]; ok {
				delete(d.keydir, k)
				d.removeKey(k)
			}
		} else {
			if _, ok := d.keydir[k]; !ok {
				d.insertKey(k)
			}
			d.keydir[k] = valueLoc{offset: off, size: recLen}
		}
		off += recLen
	}
	d.offset = off
	return nil
}

// readRecordAt parses one record. With wantValue it returns the value
// bytes; otherwise only the key. hdr must be a scratch buffer of
// recordHeaderSize bytes.
func (d *Disk) readRecordAt(off int64, hdr []byte, wantValue bool) (key, value []byte, recLen int64, err error) {
	if _, err := d.f.ReadAt(hdr, off); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, 0, errCorruptTail
		}
		return nil, nil, 0, fmt.Errorf("storage: read record header: %w", err)
	}
	crc := bx.U32(hdr[0:4])
	keyLen := bx.U32(hdr[4:8])
	valLen := bx.U32(hdr[8:12])
	if keyLen > maxKeyLen || (valLen != tombstoneLen && valLen > maxValueLen) {
		return nil, nil, 0, errCorruptTail
	}
	dataLen := int64(keyLen)
	if valLen != tombstoneLen {
		dataLen += int64(valLen)
	}
	body := make([]byte, dataLen)
	if _, err := d.f.ReadAt(body, off+recordHeaderSize); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, 0, errCorruptTail
		}
		return nil, nil, 0, fmt.Errorf("storage: read record body: %w", err)
	}
	h := crc32.NewIEEE()
	h.Write(hdr[4:12])
	h.Write(body)
	if h.Sum32() != crc {
		return nil, nil, 0, errCorruptTail
	}
	key = body[:keyLen]
	if wantValue && valLen != tombstoneLen {
		value = body[keyLen:]
	}
	return key, value, recordHeaderSize + dataLen, nil
}

func encodeRecord(key, value []byte, tombstone bool) []byte {
	valLen := uint32(len(value))
	if tombstone {
		valLen = tombstoneLen
		value = nil
	}
	buf := make([]byte, recordHeaderSize+len(key)+len(value))
	bx.PutU32(buf[4:8], uint32(len(key)))
	bx.PutU32(buf[8:12], valLen)
	copy(buf[recordHeaderSize:], key)
	copy(buf[recordHeaderSize+len(key):], value)
	bx.PutU32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

func (d *Disk) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	k := string(key)
	if v, ok := d.cache.Get(k); ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	loc, ok := d.keydir[k]
	if !ok {
		return nil, ErrKeyNotFound
	}
	value, err := d.valueAt(loc)
	if err != nil {
		return nil, err
	}
	d.cache.Add(k, value)
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (d *Disk) valueAt(loc valueLoc) ([]byte, error) {
	hdr := make([]byte, recordHeaderSize)
	_, value, _, err := d.readRecordAt(loc.offset, hdr, true)
	if err != nil {
		if errors.Is(err, errCorruptTail) {
			return nil, fmt.Errorf("storage: record at %d unreadable", loc.offset)
		}
		return nil, err
	}
	return value, nil
}

func (d *Disk) Put(key, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	rec := encodeRecord(key, value, false)
	if _, err := d.f.WriteAt(rec, d.offset); err != nil {
		return fmt.Errorf("storage: append record: %w", err)
	}
	k := string(key)
	if _, ok := d.keydir[k]; !ok {
		d.insertKey(k)
	}
	d.keydir[k] = valueLoc{offset: d.offset, size: int64(len(rec))}
	d.offset += int64(len(rec))
	d.cache.Remove(k)
	return nil
}

func (d *Disk) Delete(key []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	k := string(key)
	if _, ok := d.keydir[k]; !ok {
		return nil
	}
	rec := encodeRecord(key, nil, true)
	if _, err := d.f.WriteAt(rec, d.offset); err != nil {
		return fmt.Errorf("storage: append tombstone: %w", err)
	}
	d.offset += int64(len(rec))
	delete(d.keydir, k)
	d.removeKey(k)
	d.cache.Remove(k)
	return nil
}

func (d *Disk) ScanPrefix(prefix []byte) (Iterator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	p := string(prefix)
	start := sort.SearchStrings(d.keys, p)
	var locs []scanEntry
	for i := start; i < len(d.keys); i++ {
		k := d.keys[i]
		if !bytes.HasPrefix([]byte(k), prefix) {
			break
		}
		locs = append(locs, scanEntry{key: k, loc: d.keydir[k]})
	}
	d.scans++
	return &diskIterator{d: d, entries: locs}, nil
}

func (d *Disk) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("storage: sync: %w", err)
	}
	return nil
}

// Compact rewrites the data file keeping only the latest record of each
// live key, then swaps it in place. Fails if a scan is open, since open
// iterators hold offsets into the old file.
func (d *Disk) Compact() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.scans > 0 {
		return ErrScanActive
	}
	tmpPath := filepath.Join(d.dir, dataFileName+".compact")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create compact file: %w", err)
	}
	newDir := make(map[string]valueLoc, len(d.keydir))
	var off int64
	for _, k := range d.keys {
		value, err := d.valueAt(d.keydir[k])
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
		rec := encodeRecord([]byte(k), value, false)
		if _, err := tmp.WriteAt(rec, off); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("storage: write compact record: %w", err)
		}
		newDir[k] = valueLoc{offset: off, size: int64(len(rec))}
		off += int64(len(rec))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: sync compact file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(d.dir, dataFileName)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: swap compact file: %w", err)
	}
	d.f.Close()
	d.f = tmp
	d.keydir = newDir
	d.offset = off
	d.cache.Purge()
	return nil
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	syncErr := d.f.Sync()
	closeErr := d.f.Close()
	d.lock.Close()
	os.Remove(filepath.Join(d.dir, lockFileName))
	if syncErr != nil {
		return fmt.Errorf("storage: sync on close: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("storage: close data file: %w", closeErr)
	}
	return nil
}

func (d *Disk) insertKey(k string) {
	i := sort.SearchStrings(d.keys, k)
	d.keys = append(d.keys, "")
	copy(d.keys[i+1:], d.keys[i:])
	d.keys[i] = k
}

func (d *Disk) removeKey(k string) {
	i := sort.SearchStrings(d.keys, k)
	if i < len(d.keys) && d.keys[i] == k {
		d.keys = append(d.keys[:i], d.keys[i+1:]...)
	}
}

type scanEntry struct {
	key string
	loc valueLoc
}

// diskIterator reads record values lazily. The key set and offsets are
// snapshotted at scan time; appends after that point are invisible, and
// compaction is held off until the iterator closes.
type diskIterator struct {
	d       *Disk
	entries []scanEntry
	pos     int
	key     []byte
	value   []byte
	err     error
	closed  bool
}

func (it *diskIterator) Next() bool {
	if it.err != nil || it.pos >= len(it.entries) {
		return false
	}
	e := it.entries[it.pos]
	it.pos++
	value, err := it.d.valueAt(e.loc)
	if err != nil {
		it.err = err
		return false
	}
	it.key = []byte(e.key)
	it.value = value
	return true
}

func (it *diskIterator) Key() []byte   { return it.key }
func (it *diskIterator) Value() []byte { return it.value }
func (it *diskIterator) Err() error    { return it.err }

func (it *diskIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.d.mu.Lock()
	it.d.scans--
	it.d.mu.Unlock()
	return nil
}
