package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskPutGetDelete(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, d.Put([]byte("k"), []byte("v1")))
	v, err := d.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, d.Put([]byte("k"), []byte("v2")))
	v, err = d.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, d.Delete([]byte("k")))
	_, err = d.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestDiskReopen(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenDisk(dir)
	require.NoError(t, err)
	require.NoError(t, d.Put([]byte("a"), []byte("1")))
	require.NoError(t, d.Put([]byte("b"), []byte("2")))
	require.NoError(t, d.Put([]byte("a"), []byte("3")))
	require.NoError(t, d.Delete([]byte("b")))
	require.NoError(t, d.Close())

	d, err = OpenDisk(dir)
	require.NoError(t, err)
	defer d.Close()

	v, err := d.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	_, err = d.Get([]byte("b"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestDiskTruncatesCorruptTail(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenDisk(dir)
	require.NoError(t, err)
	require.NoError(t, d.Put([]byte("good"), []byte("value")))
	require.NoError(t, d.Close())

	// simulate a torn write at the end of the log
	f, err := os.OpenFile(filepath.Join(dir, dataFileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	d, err = OpenDisk(dir)
	require.NoError(t, err)
	defer d.Close()

	v, err := d.Get([]byte("good"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	// the tail was dropped, so new writes land on a clean log
	require.NoError(t, d.Put([]byte("next"), []byte("row")))
	v, err = d.Get([]byte("next"))
	require.NoError(t, err)
	assert.Equal(t, []byte("row"), v)
}

func TestDiskScanPrefix(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Put([]byte("r2"), []byte("b")))
	require.NoError(t, d.Put([]byte("r1"), []byte("a")))
	require.NoError(t, d.Put([]byte("s1"), []byte("c")))

	it, err := d.ScanPrefix([]byte("r"))
	require.NoError(t, err)

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	assert.Equal(t, []string{"r1", "r2"}, keys)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestDiskLock(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenDisk(dir)
	require.NoError(t, err)
	defer d.Close()

	_, err = OpenDisk(dir)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestDiskLockReleasedOnClose(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenDisk(dir)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = OpenDisk(dir)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestDiskCompact(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenDisk(dir)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Put([]byte("hot"), []byte{byte(i)}))
	}
	require.NoError(t, d.Put([]byte("cold"), []byte("keep")))
	require.NoError(t, d.Delete([]byte("hot")))

	before, err := os.Stat(filepath.Join(dir, dataFileName))
	require.NoError(t, err)

	require.NoError(t, d.Compact())

	after, err := os.Stat(filepath.Join(dir, dataFileName))
	require.NoError(t, err)
	assert.Less(t, after.Size(), before.Size())

	v, err := d.Get([]byte("cold"))
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), v)
	_, err = d.Get([]byte("hot"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, d.Close())

	// the compacted log must survive a reopen
	d, err = OpenDisk(dir)
	require.NoError(t, err)
	defer d.Close()
	v, err = d.Get([]byte("cold"))
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), v)
}

func TestDiskCompactBlockedDuringScan(t *testing.T) {
	d, err := OpenDisk(t.TempDir())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Put([]byte("a"), []byte("1")))

	it, err := d.ScanPrefix(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, d.Compact(), ErrScanActive)

	require.NoError(t, it.Close())
	assert.NoError(t, d.Compact())
}
