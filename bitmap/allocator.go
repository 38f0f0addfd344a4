// Package bitmap implements the bitmap allocator (spec §4.1): finding,
// allocating, and freeing inode numbers and data block numbers backed by
// bitmaps stored on disk.
//
// Grounded on drivers/common/allocatormap.go's Allocator (first-fit linear
// scan, github.com/boljen/go-bitmap-backed bit storage) but reworked to
// read/write the bitmap a byte at a time directly against a block.Device
// (spec §4.1: "scanning byte-by-byte from the first bitmap block") instead
// of holding the whole region resident in memory, since the allocator does
// not own a persistent in-memory mirror here -- the transaction engine
// decides when bits actually get committed (spec §4.7 Phase A).
package bitmap

import (
	bbitmap "github.com/boljen/go-bitmap"

	"github.com/basekernel-go/kfs/block"
	kerrors "github.com/basekernel-go/kfs/errors"
)

// Allocator scans a fixed-size bitmap region of a block.Device. It never
// mutates the on-disk bitmap itself: spec §4.1 is explicit that "Allocation
// does not immediately flip the on-disk bit; the bit flip is part of commit
// for CREATE entries." SetBit (which both sets and clears) exists for the
// transaction engine's commit Phase A/DELETE path to call, not for
// speculative allocation.
type Allocator struct {
	dev         block.Device
	regionStart uint32
	numBits     uint32
}

// New creates an Allocator over `numBits` bits stored starting at block
// `regionStart` of `dev`.
func New(dev block.Device, regionStart uint32, numBits uint32) *Allocator {
	return &Allocator{dev: dev, regionStart: regionStart, numBits: numBits}
}

// CheckBit reads the containing byte and tests bit `index` (spec §4.1
// "check_bit"). Bit 0 of each byte is tested first (spec §9 "Bit
// ordering"), matching github.com/boljen/go-bitmap's LSB-first convention.
func (a *Allocator) CheckBit(index uint32) (bool, error) {
	if index >= a.numBits {
		return false, kerrors.ErrIOFailed.WithMessage("bitmap index out of range")
	}
	b, err := block.ReadByteAt(a.dev, a.regionStart, index/8)
	if err != nil {
		return false, err
	}
	return bbitmap.Bitmap([]byte{b}).Get(int(index % 8)), nil
}

// FindFree scans from bit 0 for the first clear bit (spec §4.1
// "find_free"), skipping any index for which `reserved` returns true. A
// transaction passes a `reserved` predicate covering bits already claimed by
// its own pending CREATE entries, so two stage_create calls within one
// transaction never collide before either has committed (spec §4.1: "it
// guarantees uniqueness by also consulting the set of pending CREATE
// entries in the current transaction").
func (a *Allocator) FindFree(reserved func(index uint32) bool) (uint32, error) {
	var currentByteIndex uint32 = 0xFFFFFFFF
	var current byte

	for index := uint32(0); index < a.numBits; index++ {
		byteIndex := index / 8
		if byteIndex != currentByteIndex {
			b, err := block.ReadByteAt(a.dev, a.regionStart, byteIndex)
			if err != nil {
				return 0, err
			}
			current = b
			currentByteIndex = byteIndex
		}

		if bbitmap.Bitmap([]byte{current}).Get(int(index % 8)) {
			continue
		}
		if reserved != nil && reserved(index) {
			continue
		}
		return index, nil
	}

	return 0, kerrors.ErrNoSpace
}

// SetBit sets or clears bit `index` directly on disk via a read-modify-write
// of its containing byte. Only the transaction engine's commit path calls
// this (Phase A for CREATE, Phase B for DELETE); spec §4.1 explicitly
// forbids the allocator itself from flipping bits eagerly.
func (a *Allocator) SetBit(index uint32, value bool) error {
	if index >= a.numBits {
		return kerrors.ErrIOFailed.WithMessage("bitmap index out of range")
	}
	byteIndex := index / 8
	b, err := block.ReadByteAt(a.dev, a.regionStart, byteIndex)
	if err != nil {
		return err
	}
	bm := bbitmap.Bitmap([]byte{b})
	bm.Set(int(index%8), value)
	return block.WriteByteAt(a.dev, a.regionStart, byteIndex, bm[0])
}
