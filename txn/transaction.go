// Package txn implements the write-ahead-light transaction engine (spec
// §4.7): every mutation of inodes and data blocks is staged into an
// in-memory Transaction that either commits atomically to the device or is
// discarded.
//
// The write-back dirty-tracking shape is grounded on
// file_systems/common/blockcache/blockcache.go's BlockCache (which tracks a
// per-block dirty bitmap and flushes in index order on Flush), reworked
// here into staged CREATE/MODIFY/DELETE entries per data item rather than
// per raw block, the way kevinfs.c's transaction struct and
// kevinfs_commit_transaction operate. Phase A/Phase B staged-entry
// collapsing is spec §4.7's, implemented verbatim below.
package txn

import (
	"github.com/hashicorp/go-multierror"

	"github.com/basekernel-go/kfs/bitmap"
	"github.com/basekernel-go/kfs/block"
	kerrors "github.com/basekernel-go/kfs/errors"
	"github.com/basekernel-go/kfs/layout"
)

// Op is one of CREATE, MODIFY, DELETE (spec §3 "Transaction").
type Op int

const (
	Create Op = iota
	Modify
	Delete
)

// DataType distinguishes an inode entry from a data block entry.
type DataType int

const (
	InodeData DataType = iota
	BlockData
)

type key struct {
	dataType DataType
	number   uint32
}

// Entry is one staged mutation (spec §3 "Transaction" entry fields).
type Entry struct {
	Op       Op
	DataType DataType
	Number   uint32
	Payload  []byte
}

// Transaction is the in-memory, per-operation staging area described by
// spec §4.7 and §9 ("a faithful rewrite passes the transaction as a
// parameter through each operation... scoped-acquisition pattern"). Callers
// construct one with New at the start of a VFS operation, stage mutations,
// and either Commit or simply let it go out of scope to discard it --
// staging never touches the device, so an abandoned Transaction has no
// on-disk effect.
type Transaction struct {
	dev            block.Device
	inodeBitmap    *bitmap.Allocator
	blockBitmap    *bitmap.Allocator
	inodeTableBase uint32 // block index of start of the inode table region
	freeBlockStart uint32

	order   []key
	entries map[key]*Entry
}

// New creates an empty Transaction bound to a specific device and its
// bitmap/region layout.
func New(dev block.Device, inodeBitmap, blockBitmap *bitmap.Allocator, inodeTableBase, freeBlockStart uint32) *Transaction {
	return &Transaction{
		dev:            dev,
		inodeBitmap:    inodeBitmap,
		blockBitmap:    blockBitmap,
		inodeTableBase: inodeTableBase,
		freeBlockStart: freeBlockStart,
		entries:        make(map[key]*Entry),
	}
}

// IsInodeReserved reports whether inode number `n` is the target of a
// pending CREATE entry in this transaction, letting the bitmap allocator
// avoid handing out the same free inode number twice within one
// transaction (spec §4.1).
func (t *Transaction) IsInodeReserved(n uint32) bool {
	e, ok := t.entries[key{InodeData, n}]
	return ok && e.Op == Create
}

// IsBlockReserved is IsInodeReserved's BlockData counterpart.
func (t *Transaction) IsBlockReserved(n uint32) bool {
	e, ok := t.entries[key{BlockData, n}]
	return ok && e.Op == Create
}

// Stage records a mutation, applying the collapsing rules of spec §4.7 so
// that at most one effective entry exists per (dataType, number).
func (t *Transaction) Stage(op Op, dataType DataType, number uint32, payload []byte) {
	k := key{dataType, number}
	existing, ok := t.entries[k]
	if !ok {
		t.order = append(t.order, k)
		t.entries[k] = &Entry{Op: op, DataType: dataType, Number: number, Payload: payload}
		return
	}

	switch {
	case existing.Op == Create && op == Modify:
		existing.Payload = payload
	case existing.Op == Create && op == Delete:
		delete(t.entries, k)
		t.removeFromOrder(k)
	case existing.Op == Modify && op == Delete:
		existing.Op = Delete
		existing.Payload = nil
	case existing.Op == Modify && op == Modify:
		existing.Payload = payload
	case existing.Op == Delete && op == Create:
		existing.Op = Modify
		existing.Payload = payload
	default:
		// Any other transition (e.g. staging the same op twice) just keeps
		// the latest payload without changing the effective op.
		existing.Payload = payload
	}
}

func (t *Transaction) removeFromOrder(k key) {
	for i, ok := range t.order {
		if ok == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// StageCreateInode stages a CREATE entry for an inode.
func (t *Transaction) StageCreateInode(number uint32, inode *layout.Inode) {
	t.Stage(Create, InodeData, number, inode.Encode())
}

// StageSaveInode stages a MODIFY entry for an inode.
func (t *Transaction) StageSaveInode(number uint32, inode *layout.Inode) {
	t.Stage(Modify, InodeData, number, inode.Encode())
}

// StageDeleteInode stages a DELETE entry for an inode.
func (t *Transaction) StageDeleteInode(number uint32) {
	t.Stage(Delete, InodeData, number, nil)
}

// StageCreateBlock stages a CREATE entry for a data block with a given
// payload (may be all zeros for a freshly grown block, per spec §4.4
// "resize").
func (t *Transaction) StageCreateBlock(number uint32, payload []byte) {
	t.Stage(Create, BlockData, number, payload)
}

// StageModifyBlock stages a MODIFY entry for a data block.
func (t *Transaction) StageModifyBlock(number uint32, payload []byte) {
	t.Stage(Modify, BlockData, number, payload)
}

// StageDeleteBlock stages a DELETE entry for a data block.
func (t *Transaction) StageDeleteBlock(number uint32) {
	t.Stage(Delete, BlockData, number, nil)
}

// Commit drains the staged entries into persistent blocks in the two-phase
// order of spec §4.7: Phase A flips bitmap bits for CREATE entries, Phase B
// writes payloads (and clears bitmap bits for DELETE) in staging order.
//
// Every I/O failure is recorded and commit keeps going so as many of the
// remaining writes as possible still land; the accumulated errors are
// returned together via hashicorp/go-multierror rather than only the
// first one (spec §4.7's "fatal to the current operation" is honored -- the
// caller still receives a non-nil error -- but a single failed block no
// longer silently hides the fate of every entry after it).
func (t *Transaction) Commit() error {
	var result *multierror.Error

	// Phase A: allocations.
	for _, k := range t.order {
		e := t.entries[k]
		if e.Op != Create {
			continue
		}
		var err error
		if e.DataType == InodeData {
			err = t.inodeBitmap.SetBit(e.Number-1, true)
		} else {
			err = t.blockBitmap.SetBit(e.Number, true)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	// Phase B: payloads.
	for _, k := range t.order {
		e := t.entries[k]
		var err error
		switch {
		case e.Op == Delete && e.DataType == InodeData:
			err = t.inodeBitmap.SetBit(e.Number-1, false)
		case e.Op == Delete && e.DataType == BlockData:
			err = t.blockBitmap.SetBit(e.Number, false)
		case e.DataType == InodeData && (e.Op == Create || e.Op == Modify):
			err = t.writeInode(e.Number, e.Payload)
		case e.DataType == BlockData && (e.Op == Create || e.Op == Modify) && e.Payload != nil:
			err = t.dev.WriteBlock(t.freeBlockStart+e.Number, e.Payload)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	t.order = nil
	t.entries = make(map[key]*Entry)

	if result != nil {
		return kerrors.ErrIOFailed.WrapError(result)
	}
	return nil
}

func (t *Transaction) writeInode(number uint32, payload []byte) error {
	blockOffset, byteOffset := layout.Location(number)
	blk, err := t.dev.ReadBlock(t.inodeTableBase + blockOffset)
	if err != nil {
		return err
	}
	copy(blk[byteOffset:byteOffset+layout.InodeSize], payload)
	return t.dev.WriteBlock(t.inodeTableBase+blockOffset, blk)
}

// Discard clears all staged entries without touching the device. Since
// staging never writes, this is equivalent to simply dropping the
// Transaction value, but it is provided so callers can reuse the scoped-
// acquisition pattern described in spec §9 ("guaranteed discard on any exit
// path unless explicitly committed") explicitly, e.g. via defer.
func (t *Transaction) Discard() {
	t.order = nil
	t.entries = make(map[key]*Entry)
}
