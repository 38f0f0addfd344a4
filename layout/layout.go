// Package layout defines the fixed on-disk format of KFS (spec §3 "Data
// model", §6 "On-disk format"): the superblock, the inode record, and the
// directory record, plus the region layout constants every other package
// computes offsets from.
//
// The encode/decode helpers here mirror the teacher's
// drivers/unixv1/inode.go RawInode shape and file_systems/unixv1/format.go's
// use of github.com/noxer/bytewriter to write fixed fields into a
// pre-sized byte slice in place, rather than building up a []byte with
// repeated append calls.
package layout

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"

	kerrors "github.com/basekernel-go/kfs/errors"
)

// BlockSize is fixed by convention (spec §3).
const BlockSize = 4096

// MaxDirect is the number of direct block addresses an inode carries
// (spec §3: "configurable small constant, e.g. 14").
const MaxDirect = 14

// FilenameMax is the largest filename KFS stores, NUL-padded (spec §3).
const FilenameMax = 255

// Magic is the fixed superblock sentinel value.
const Magic = uint32(0x4B465301) // "KFS" + format version 1

// SuperblockSize is the number of on-disk bytes the superblock header
// occupies; the rest of block 0 is padding (spec §6: "32 bytes used,
// padded to blocksize").
const SuperblockSize = 32

// Superblock is the decoded form of block 0.
type Superblock struct {
	Magic            uint32
	BlockSize        uint32
	NumFreeBlocks    uint32
	NumInodes        uint32
	InodeBitmapStart uint32
	InodeStart       uint32
	BlockBitmapStart uint32
	FreeBlockStart   uint32
}

// Encode writes the superblock into a full BlockSize-sized block buffer,
// zero-padding everything past SuperblockSize.
func (s *Superblock) Encode() []byte {
	buf := make([]byte, BlockSize)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, s.Magic)
	binary.Write(w, binary.LittleEndian, s.BlockSize)
	binary.Write(w, binary.LittleEndian, s.NumFreeBlocks)
	binary.Write(w, binary.LittleEndian, s.NumInodes)
	binary.Write(w, binary.LittleEndian, s.InodeBitmapStart)
	binary.Write(w, binary.LittleEndian, s.InodeStart)
	binary.Write(w, binary.LittleEndian, s.BlockBitmapStart)
	binary.Write(w, binary.LittleEndian, s.FreeBlockStart)
	return buf
}

// DecodeSuperblock parses block 0's contents. It returns ErrCorrupt if the
// magic doesn't match.
func DecodeSuperblock(block []byte) (*Superblock, error) {
	if len(block) < SuperblockSize {
		return nil, kerrors.ErrCorrupt.WithMessage("superblock block truncated")
	}
	s := &Superblock{
		Magic:            binary.LittleEndian.Uint32(block[0:4]),
		BlockSize:        binary.LittleEndian.Uint32(block[4:8]),
		NumFreeBlocks:    binary.LittleEndian.Uint32(block[8:12]),
		NumInodes:        binary.LittleEndian.Uint32(block[12:16]),
		InodeBitmapStart: binary.LittleEndian.Uint32(block[16:20]),
		InodeStart:       binary.LittleEndian.Uint32(block[20:24]),
		BlockBitmapStart: binary.LittleEndian.Uint32(block[24:28]),
		FreeBlockStart:   binary.LittleEndian.Uint32(block[28:32]),
	}
	if s.Magic != Magic {
		return nil, kerrors.ErrCorrupt.WithMessage("bad superblock magic")
	}
	return s, nil
}

// InodeBitmapBytes reports the size in bytes of the inode bitmap region.
func InodeBitmapBytes(numInodes uint32) uint32 {
	return (numInodes + 7) / 8
}

// BlockBitmapBytes reports the size in bytes of the block bitmap region.
func BlockBitmapBytes(numFreeBlocks uint32) uint32 {
	return (numFreeBlocks + 7) / 8
}
