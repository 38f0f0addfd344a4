package volume

import (
	kerrors "github.com/basekernel-go/kfs/errors"
	"github.com/basekernel-go/kfs/layout"
)

// Mode is the set of access permissions a File was opened with.
type Mode int

const (
	ModeRead Mode = 1 << iota
	ModeWrite
)

// maxFileBytes is the largest offset+length a write may reach (spec §4.5:
// "fail if offset + n > MAX_DIRECT * BLOCKSIZE").
const maxFileBytes = layout.MaxDirect * layout.BlockSize

// File is a handle returned by Dirent.Open: an inode reference, the mode
// it was opened with, and a mutable offset private to this handle (spec
// §4.5 "open").
type File struct {
	v           *Volume
	inodeNumber uint32
	mode        Mode
	offset      int64
}

// Close releases the handle. There is nothing to flush: every Write
// already committed its own transaction.
func (f *File) Close() error {
	return nil
}

// Write checks the mode bit, then writes buf at the file's current
// offset, advancing it by the number of bytes transferred (spec §4.5
// "write"). If offset+len(buf) exceeds MAX_DIRECT*BLOCKSIZE, the offset is
// restored to its pre-call value before returning ErrTooBig -- the
// explicit redesign of kevinfs_write's failure to restore kf->offset
// (spec §9).
func (f *File) Write(buf []byte) (int, error) {
	if f.mode&ModeWrite == 0 {
		return 0, kerrors.ErrBadMode
	}

	originalOffset := f.offset
	newOffset := f.offset + int64(len(buf))
	if newOffset > maxFileBytes {
		f.offset = originalOffset
		return 0, kerrors.ErrTooBig
	}
	f.offset = newOffset

	n, err := f.v.inodes.Get(f.inodeNumber)
	if err != nil {
		f.offset = originalOffset
		return 0, err
	}

	tx := f.v.newTxn()
	written, err := f.v.io.WriteRange(tx, n, buf, originalOffset)
	if err != nil {
		f.offset = originalOffset
		return 0, err
	}
	if err := f.v.inodes.Resave(tx, n); err != nil {
		f.offset = originalOffset
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		f.offset = originalOffset
		return 0, err
	}
	return written, nil
}

// Read checks the mode bit, clamps the read to the file's size_bytes, and
// reads into buf starting at the file's current offset, advancing it by
// the number of bytes transferred (spec §4.5 "read").
func (f *File) Read(buf []byte) (int, error) {
	if f.mode&ModeRead == 0 {
		return 0, kerrors.ErrBadMode
	}

	n, err := f.v.inodes.Get(f.inodeNumber)
	if err != nil {
		return 0, err
	}

	originalOffset := f.offset
	newOffset := f.offset + int64(len(buf))
	if newOffset >= int64(n.SizeBytes) {
		newOffset = int64(n.SizeBytes)
	}
	if newOffset == originalOffset {
		return 0, nil
	}

	read, err := f.v.io.ReadRange(n, buf[:newOffset-originalOffset], originalOffset)
	if err != nil {
		return 0, err
	}
	f.offset = originalOffset + int64(read)
	return read, nil
}
