package volume

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/block"
	kerrors "github.com/basekernel-go/kfs/errors"
)

func newVolumeFixture(t *testing.T) *Volume {
	t.Helper()
	const numBlocks = 256
	buf := make([]byte, numBlocks*4096)
	dev := block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, 4096)

	require.NoError(t, Mkfs(dev, 64, 128))
	v, err := Mount(dev)
	require.NoError(t, err)
	return v
}

// S1: format a device, mount, assert root lists exactly the two records
// "." and "..".
func TestScenarioFormatAndMountRoot(t *testing.T) {
	v := newVolumeFixture(t)

	buf := make([]byte, 64)
	n, err := v.Root().Readdir(buf)
	require.NoError(t, err)
	assert.Equal(t, ". .. ", string(buf[:n]))
}

// S2: mkdir("b"); mkdir("a"); mkdir("c"); readdir yields ". .. a b c " in
// lexicographic order.
func TestScenarioMkdirOrdering(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()

	require.NoError(t, root.Mkdir("b"))
	require.NoError(t, root.Mkdir("a"))
	require.NoError(t, root.Mkdir("c"))

	buf := make([]byte, 64)
	n, err := root.Readdir(buf)
	require.NoError(t, err)
	assert.Equal(t, ". .. a b c ", string(buf[:n]))
}

// S3: mkfile("f"); write 8192 bytes of 0xAB; read them back whole.
func TestScenarioWriteReadRoundTrip(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkfile("f"))

	fEnt, err := root.Lookup("f")
	require.NoError(t, err)
	require.NotNil(t, fEnt)

	w, err := fEnt.Open(ModeWrite)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0xAB}, 8192)
	n, err := w.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, 8192, n)

	r, err := fEnt.Open(ModeRead)
	require.NoError(t, err)
	got := make([]byte, 8192)
	n, err = r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, 8192, n)
	assert.Equal(t, payload, got)
}

// S4: mkfile("f"); unlink("f"); lookup("f") returns nil.
func TestScenarioUnlinkFreesInode(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkfile("f"))

	fEnt, err := root.Lookup("f")
	require.NoError(t, err)
	require.NotNil(t, fEnt)

	live, err := v.inodes.IsLive(fEnt.InodeNumber())
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, root.Unlink("f"))

	live, err = v.inodes.IsLive(fEnt.InodeNumber())
	require.NoError(t, err)
	assert.False(t, live)

	got, err := root.Lookup("f")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// S5: mkfile("f"); link("f", "g"); unlink("f"); open("g", READ) succeeds;
// link_count = 1.
func TestScenarioLinkThenUnlinkOriginal(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkfile("f"))
	require.NoError(t, root.Link("f", "g"))
	require.NoError(t, root.Unlink("f"))

	g, err := root.Lookup("g")
	require.NoError(t, err)
	require.NotNil(t, g)

	_, err = g.Open(ModeRead)
	require.NoError(t, err)

	n, err := v.inodes.Get(g.InodeNumber())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n.LinkCount)
}

// S6: mkdir("d"); mkfile inside d; rmdir("d") fails NotEmpty; unlink the
// file; rmdir("d") succeeds; root has only "." and "..".
func TestScenarioRmdirRequiresEmpty(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkdir("d"))

	d, err := root.Lookup("d")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NoError(t, d.Mkfile("inner"))

	err = root.Rmdir("d")
	assert.ErrorIs(t, err, kerrors.ErrNotEmpty)

	require.NoError(t, d.Unlink("inner"))
	require.NoError(t, root.Rmdir("d"))

	buf := make([]byte, 64)
	n, err := root.Readdir(buf)
	require.NoError(t, err)
	assert.Equal(t, ". .. ", string(buf[:n]))
}

// Invariant 6: mkdir("x") twice returns Exists the second time.
func TestMkdirIdempotenceFailsSecondTime(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkdir("x"))
	err := root.Mkdir("x")
	assert.ErrorIs(t, err, kerrors.ErrExists)
}

func TestMkfileNameTooLong(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	longName := string(bytes.Repeat([]byte{'a'}, 300))
	err := root.Mkfile(longName)
	assert.ErrorIs(t, err, kerrors.ErrNameTooLong)
}

func TestUnlinkOnDirectoryFails(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkdir("d"))
	err := root.Unlink("d")
	assert.ErrorIs(t, err, kerrors.ErrIsADirectory)
}

func TestLinkToDirectoryFails(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkdir("d"))
	err := root.Link("d", "alias")
	assert.ErrorIs(t, err, kerrors.ErrIsADirectory)
}

func TestWriteBeyondMaxDirectFails(t *testing.T) {
	v := newVolumeFixture(t)
	root := v.Root()
	require.NoError(t, root.Mkfile("big"))
	f, err := root.Lookup("big")
	require.NoError(t, err)
	w, err := f.Open(ModeWrite)
	require.NoError(t, err)

	_, err = w.Write(make([]byte, 10))
	require.NoError(t, err)
	preOffset := int64(10)

	_, err = w.Write(make([]byte, maxFileBytes))
	assert.ErrorIs(t, err, kerrors.ErrTooBig)
	assert.Equal(t, preOffset, w.offset)
}
