package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/block"
)

func newDevice(t *testing.T) block.Device {
	t.Helper()
	const numBlocks = 256
	buf := make([]byte, numBlocks*4096)
	return block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, 4096)
}

func TestMountRootHasCanonicalRecords(t *testing.T) {
	dev := newDevice(t)
	require.NoError(t, Mkfs(dev, 64, 128))

	v, err := Mount(dev)
	require.NoError(t, err)

	root := v.Ops.Root()
	buf := make([]byte, 64)
	n := root.Ops.Readdir(buf)
	assert.Equal(t, ". .. ", string(buf[:n]))
}

func TestOpsTableCollapsesErrorsToStatusCode(t *testing.T) {
	dev := newDevice(t)
	require.NoError(t, Mkfs(dev, 64, 128))
	v, err := Mount(dev)
	require.NoError(t, err)

	root := v.Ops.Root()
	assert.Equal(t, 0, root.Ops.Mkdir("a"))
	assert.Equal(t, -1, root.Ops.Mkdir("a"))
}

func TestOpenWriteReadThroughOpsTable(t *testing.T) {
	dev := newDevice(t)
	require.NoError(t, Mkfs(dev, 64, 128))
	v, err := Mount(dev)
	require.NoError(t, err)

	root := v.Ops.Root()
	require.Equal(t, 0, root.Ops.Mkfile("f"))

	f, found := root.Ops.Lookup("f")
	require.True(t, found)

	w, status := f.Ops.Open(ModeWrite)
	require.Equal(t, 0, status)
	payload := []byte("hello vfs")
	assert.Equal(t, len(payload), w.Ops.Write(payload))

	r, status := f.Ops.Open(ModeRead)
	require.Equal(t, 0, status)
	got := make([]byte, len(payload))
	assert.Equal(t, len(payload), r.Ops.Read(got))
	assert.Equal(t, payload, got)

	assert.Equal(t, 0, v.Ops.Umount())
}

func TestLookupMissingReturnsNotFound(t *testing.T) {
	dev := newDevice(t)
	require.NoError(t, Mkfs(dev, 64, 128))
	v, err := Mount(dev)
	require.NoError(t, err)

	root := v.Ops.Root()
	_, found := root.Ops.Lookup("nope")
	assert.False(t, found)
}
