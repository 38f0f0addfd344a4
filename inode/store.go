// Package inode implements the inode store (spec §4.2): loading/saving
// fixed-size inode records at a computed (block, offset) and tracking
// liveness via the inode bitmap.
//
// Grounded on kevinfs.c's kevinfs_get_inode/kevinfs_save_inode/
// kevinfs_create_new_inode/kevinfs_delete_inode_or_decrement_links, with the
// on-disk shape from drivers/unixv1/inode.go's RawInode.
package inode

import (
	"github.com/basekernel-go/kfs/bitmap"
	"github.com/basekernel-go/kfs/block"
	kerrors "github.com/basekernel-go/kfs/errors"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/txn"
)

// Store is the inode table plus the inode bitmap backing it.
type Store struct {
	dev            block.Device
	inodeBitmap    *bitmap.Allocator
	inodeTableBase uint32
	numInodes      uint32
}

// New creates a Store bound to a formatted volume's inode region.
func New(dev block.Device, inodeBitmap *bitmap.Allocator, inodeTableBase, numInodes uint32) *Store {
	return &Store{dev: dev, inodeBitmap: inodeBitmap, inodeTableBase: inodeTableBase, numInodes: numInodes}
}

// Get loads inode `number`. It returns ErrNotFound both when the number is
// out of the valid [1, numInodes] range (kevinfs_get_inode's bounds check,
// supplemented from original_source -- see SPEC_FULL.md) and when the
// bitmap bit is clear (spec §4.2: "Returns None if free").
func (s *Store) Get(number uint32) (*layout.Inode, error) {
	if number == 0 || number > s.numInodes {
		return nil, kerrors.ErrNotFound.WithMessage("inode number out of range")
	}

	live, err := s.inodeBitmap.CheckBit(number - 1)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, kerrors.ErrNotFound
	}

	blockOffset, byteOffset := layout.Location(number)
	blk, err := s.dev.ReadBlock(s.inodeTableBase + blockOffset)
	if err != nil {
		return nil, err
	}
	return layout.DecodeInode(blk[byteOffset : byteOffset+layout.InodeSize]), nil
}

// IsLive reports whether `number`'s bitmap bit is set, without the
// round-trip through the inode table Get performs.
func (s *Store) IsLive(number uint32) (bool, error) {
	if number == 0 || number > s.numInodes {
		return false, nil
	}
	return s.inodeBitmap.CheckBit(number - 1)
}

// StageSave stages a MODIFY entry for an already-live inode (spec §4.2
// "stage_save"). It fails with ErrNotFound if the inode isn't currently
// live.
func (s *Store) StageSave(tx *txn.Transaction, n *layout.Inode) error {
	live, err := s.inodeBitmap.CheckBit(n.InodeNumber - 1)
	if err != nil {
		return err
	}
	if !live {
		return kerrors.ErrNotFound
	}
	tx.StageSaveInode(n.InodeNumber, n)
	return nil
}

// StageCreate allocates a fresh inode number via the bitmap, initializes a
// zero-sized inode with no blocks, and stages it as CREATE (spec §4.2
// "stage_create"). link_count starts at 1 for a directory (self-reference)
// or 0 for a regular file, per spec §4.5's mkfile note that the caller
// bumps it to 1 via the directory record insertion that follows.
func (s *Store) StageCreate(tx *txn.Transaction, isDirectory bool) (*layout.Inode, error) {
	// FindFree's reserved predicate sees 0-based bit indices, but
	// Transaction entries are keyed by 1-based inode numbers (matching
	// StageCreateInode's own numbering below) -- translate before asking.
	bit, err := s.inodeBitmap.FindFree(func(index uint32) bool {
		return tx.IsInodeReserved(index + 1)
	})
	if err != nil {
		return nil, err
	}

	n := &layout.Inode{
		InodeNumber: bit + 1,
		IsDirectory: isDirectory,
	}
	if isDirectory {
		n.LinkCount = 1
	}

	tx.StageCreateInode(n.InodeNumber, n)
	return n, nil
}

// Resave re-stages n, choosing CREATE or MODIFY depending on whether n was
// itself created earlier in this same, still-uncommitted transaction. A
// freshly StageCreate'd inode's bitmap bit isn't flipped until Commit's
// Phase A runs, so StageSave's liveness check would wrongly reject an
// update to an inode this same transaction already created (e.g. mkdir
// writing the new directory's "." / ".." body right after creating its
// inode). Callers that know which case they're in can call StageSave or
// StageCreateInode directly instead.
func (s *Store) Resave(tx *txn.Transaction, n *layout.Inode) error {
	if tx.IsInodeReserved(n.InodeNumber) {
		tx.StageCreateInode(n.InodeNumber, n)
		return nil
	}
	return s.StageSave(tx, n)
}

// StageDeleteOrDecr decrements n.LinkCount (spec §4.2 "stage_delete_or_decr")
// and stages a MODIFY if the inode survives, or a DELETE of the inode and
// every one of its direct blocks if it doesn't. Directories additionally
// lose one extra link for their own "." entry, which the caller is
// responsible for having already removed from the directory list.
//
// A link count that is already 0 before the decrement is treated as
// corruption (ErrCorrupt) rather than silently underflowing, per
// kevinfs_delete_inode_or_decrement_links's guard (see SPEC_FULL.md
// "Supplemented features").
func (s *Store) StageDeleteOrDecr(tx *txn.Transaction, n *layout.Inode) error {
	delta := uint32(1)
	if n.IsDirectory {
		delta = 2
	}
	if n.LinkCount < delta {
		return kerrors.ErrCorrupt.WithMessage("link count underflow")
	}
	n.LinkCount -= delta

	if n.LinkCount > 0 {
		tx.StageSaveInode(n.InodeNumber, n)
		return nil
	}

	tx.StageDeleteInode(n.InodeNumber)
	for i := uint32(0); i < n.DirectAddressesLen; i++ {
		tx.StageDeleteBlock(n.DirectAddresses[i])
	}
	return nil
}
