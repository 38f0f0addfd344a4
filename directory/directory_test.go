package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/bitmap"
	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/fileio"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/txn"
)

func newFixture(t *testing.T) (*Engine, *txn.Transaction) {
	t.Helper()
	const numBlocks = 64
	buf := make([]byte, numBlocks*layout.BlockSize)
	dev := block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, layout.BlockSize)

	inodeBitmap := bitmap.New(dev, 0, 64)
	blockBitmap := bitmap.New(dev, 1, 256)
	io := fileio.New(dev, blockBitmap, 10)
	engine := New(dev, io, 10)
	tx := txn.New(dev, inodeBitmap, blockBitmap, 2, 10)
	return engine, tx
}

func insertSorted(list *List, name string, inodeNo uint32) {
	prevIdx := list.LookupPrev(name)
	list.InsertAfter(prevIdx, layout.NewDirRecord(name, inodeNo, true, 0))
}

func namesInOrder(list *List) []string {
	var out []string
	list.Walk(func(rec *layout.DirRecord) bool {
		out = append(out, rec.Name())
		return true
	})
	return out
}

func TestEmptyDirHasDotAndDotDot(t *testing.T) {
	list := NewEmpty(1, 1)
	names := namesInOrder(list)
	assert.Equal(t, []string{".", ".."}, names)
}

func TestInsertKeepsLexicographicOrder(t *testing.T) {
	list := NewEmpty(1, 1)
	insertSorted(list, "b", 2)
	insertSorted(list, "a", 3)
	insertSorted(list, "c", 4)

	names := namesInOrder(list)
	assert.Equal(t, []string{".", "..", "a", "b", "c"}, names)
}

func TestLookupExactFindsInsertedRecord(t *testing.T) {
	list := NewEmpty(1, 1)
	insertSorted(list, "b", 2)
	insertSorted(list, "a", 3)

	idx, found := list.LookupExact("a")
	require.True(t, found)
	assert.Equal(t, uint32(3), list.Records[idx].InodeNumber)

	_, found = list.LookupExact("zzz")
	assert.False(t, found)
}

func TestRemoveAfterKeepsOrderAndShrinks(t *testing.T) {
	list := NewEmpty(1, 1)
	insertSorted(list, "b", 2)
	insertSorted(list, "a", 3)
	insertSorted(list, "c", 4)

	prevIdx := list.LookupPrev("b")
	list.RemoveAfter(prevIdx)

	names := namesInOrder(list)
	assert.Equal(t, []string{".", "..", "a", "c"}, names)

	_, found := list.LookupExact("b")
	assert.False(t, found)
}

func TestEngineWriteAndReadRoundTrip(t *testing.T) {
	engine, tx := newFixture(t)
	n := &layout.Inode{InodeNumber: 1, IsDirectory: true}
	list := NewEmpty(1, 1)
	insertSorted(list, "sub", 2)

	require.NoError(t, engine.Write(tx, n, list))
	require.NoError(t, tx.Commit())

	got, err := engine.Read(n)
	require.NoError(t, err)
	assert.Equal(t, []string{".", "..", "sub"}, namesInOrder(got))
}
