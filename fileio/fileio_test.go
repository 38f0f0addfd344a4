package fileio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/bitmap"
	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/txn"
)

func newFixture(t *testing.T) (*IO, *txn.Transaction) {
	t.Helper()
	const numBlocks = 64
	buf := make([]byte, numBlocks*layout.BlockSize)
	dev := block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, layout.BlockSize)

	inodeBitmap := bitmap.New(dev, 0, 64)
	blockBitmap := bitmap.New(dev, 1, 256)
	io := New(dev, blockBitmap, 10)
	tx := txn.New(dev, inodeBitmap, blockBitmap, 2, 10)
	return io, tx
}

func TestWriteReadRoundTrip(t *testing.T) {
	io, tx := newFixture(t)
	n := &layout.Inode{InodeNumber: 1}

	payload := bytes.Repeat([]byte{0xAB}, 8192)
	written, err := io.WriteRange(tx, n, payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), written)
	require.NoError(t, tx.Commit())

	got := make([]byte, len(payload))
	read, err := io.ReadRange(n, got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), read)
	assert.Equal(t, payload, got)
}

func TestWriteRangeUpdatesSize(t *testing.T) {
	io, tx := newFixture(t)
	n := &layout.Inode{InodeNumber: 1}

	_, err := io.WriteRange(tx, n, []byte("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(15), n.SizeBytes)
}

func TestResizeTooBig(t *testing.T) {
	io, tx := newFixture(t)
	n := &layout.Inode{InodeNumber: 1}
	err := io.Resize(tx, n, layout.MaxDirect+1)
	assert.Error(t, err)
}

func TestReadRangeClampsToSize(t *testing.T) {
	io, tx := newFixture(t)
	n := &layout.Inode{InodeNumber: 1}
	_, err := io.WriteRange(tx, n, []byte("hello"), 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	buf := make([]byte, 100)
	read, err := io.ReadRange(n, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, read)
}
