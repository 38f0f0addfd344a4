// Package block implements the block device adapter (spec §4 "Block device
// adapter"): reading/writing a fixed-size block by index, plus the
// byte-level primitives the bitmap allocator needs to scan and test
// individual bits without loading an entire bitmap region into memory.
//
// The actual block device driver (read/write one aligned sector) is an
// external collaborator per spec §1's non-goals; this package only adapts
// an io.ReadWriteSeeker backing store into fixed BlockSize chunks, the same role drivers/common/blockdevice.go plays for the
// teacher's drivers.
package block

import (
	"io"

	kerrors "github.com/basekernel-go/kfs/errors"
)

// Device is a random-access, block-addressed backing store. Every KFS
// component above this package talks to storage exclusively through this
// interface; nothing above it knows about sectors, files, or os.File.
type Device interface {
	// ReadBlock returns a freshly allocated copy of block `index`. The
	// returned slice has length BlockSize() and must not alias internal
	// state.
	ReadBlock(index uint32) ([]byte, error)

	// WriteBlock writes `data` to block `index`. len(data) must equal
	// BlockSize().
	WriteBlock(index uint32, data []byte) error

	// NumBlocks reports the total block capacity of the device.
	NumBlocks() uint32

	// BlockSize reports the fixed block size in bytes.
	BlockSize() int
}

// ReadByteAt reads a single byte from a bitmap region that starts at block
// `regionStart` and is `byteOffset` bytes into that region. This is the
// primitive the bitmap allocator uses to scan bit-by-bit, byte-by-byte,
// without reading the whole region up front (spec §4.1: "scanning
// byte-by-byte from the first bitmap block").
func ReadByteAt(dev Device, regionStart uint32, byteOffset uint32) (byte, error) {
	blockSize := uint32(dev.BlockSize())
	blockIndex := regionStart + byteOffset/blockSize
	offsetInBlock := byteOffset % blockSize

	blk, err := dev.ReadBlock(blockIndex)
	if err != nil {
		return 0, err
	}
	return blk[offsetInBlock], nil
}

// WriteByteAt writes a single byte into a bitmap region, the counterpart of
// ReadByteAt. It performs a read-modify-write of the containing block.
func WriteByteAt(dev Device, regionStart uint32, byteOffset uint32, value byte) error {
	blockSize := uint32(dev.BlockSize())
	blockIndex := regionStart + byteOffset/blockSize
	offsetInBlock := byteOffset % blockSize

	blk, err := dev.ReadBlock(blockIndex)
	if err != nil {
		return err
	}
	blk[offsetInBlock] = value
	return dev.WriteBlock(blockIndex, blk)
}

// memoryDevice is a Device backed by an in-memory byte slice, wrapped as an
// io.ReadWriteSeeker via bytesextra the way testing/blockcache.go wraps the
// teacher's own in-memory test fixtures.
type memoryDevice struct {
	backing   io.ReadWriteSeeker
	numBlocks uint32
	blockSize int
}

// NewMemoryDevice creates a Device over an in-memory backing store of
// exactly numBlocks*blockSize bytes. Intended for tests and for formatting a
// fresh image before it is ever written to real storage.
func NewMemoryDevice(backing io.ReadWriteSeeker, numBlocks uint32, blockSize int) Device {
	return &memoryDevice{backing: backing, numBlocks: numBlocks, blockSize: blockSize}
}

func (d *memoryDevice) NumBlocks() uint32 {
	return d.numBlocks
}

func (d *memoryDevice) BlockSize() int {
	return d.blockSize
}

func (d *memoryDevice) checkIndex(index uint32) error {
	if index >= d.numBlocks {
		return kerrors.ErrIOFailed.WithMessage("block index out of range")
	}
	return nil
}

func (d *memoryDevice) ReadBlock(index uint32) ([]byte, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	buf := make([]byte, d.blockSize)
	offset := int64(index) * int64(d.blockSize)
	if _, err := d.backing.Seek(offset, io.SeekStart); err != nil {
		return nil, kerrors.ErrIOFailed.WrapError(err)
	}
	if _, err := io.ReadFull(d.backing, buf); err != nil {
		return nil, kerrors.ErrIOFailed.WrapError(err)
	}
	return buf, nil
}

func (d *memoryDevice) WriteBlock(index uint32, data []byte) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if len(data) != d.blockSize {
		return kerrors.ErrIOFailed.WithMessage("write payload does not match block size")
	}
	offset := int64(index) * int64(d.blockSize)
	if _, err := d.backing.Seek(offset, io.SeekStart); err != nil {
		return kerrors.ErrIOFailed.WrapError(err)
	}
	if _, err := d.backing.Write(data); err != nil {
		return kerrors.ErrIOFailed.WrapError(err)
	}
	return nil
}
