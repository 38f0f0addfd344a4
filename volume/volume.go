// Package volume implements the path-level operations exposed to a VFS
// (spec §4.5) and mount/format (spec §4.6), wiring together the bitmap,
// inode, directory, and fileio packages through a single per-operation
// transaction.
//
// Grounded on kevinfs.c's kevinfs_mkdir/kevinfs_mkfile/kevinfs_rmdir/
// kevinfs_unlink/kevinfs_link/kevinfs_open/kevinfs_read/kevinfs_write/
// kevinfs_readdir/kevinfs_mkfs/kevinfs_mount; the transaction-per-call
// scoped-acquisition shape is spec §9's rewrite of the original's
// process-wide transaction global.
package volume

import (
	"github.com/basekernel-go/kfs/bitmap"
	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/directory"
	kerrors "github.com/basekernel-go/kfs/errors"
	"github.com/basekernel-go/kfs/fileio"
	"github.com/basekernel-go/kfs/inode"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/txn"
)

// RootInodeNumber is the inode number of every volume's root directory
// (spec §4.6: "root inode number = 1").
const RootInodeNumber = 1

// Volume is a mounted filesystem: a device plus the region layout read
// from its superblock, and the component stores built on top of it.
type Volume struct {
	dev block.Device
	sb  *layout.Superblock

	inodeBitmap *bitmap.Allocator
	blockBitmap *bitmap.Allocator
	inodes      *inode.Store
	dirs        *directory.Engine
	io          *fileio.IO
}

// Mkfs formats dev: writes the superblock, zeroes both bitmap regions, and
// creates inode #1 as a directory whose body is its own empty "." / ".."
// record list (parent = self), matching kevinfs_mkfs.
func Mkfs(dev block.Device, numInodes, numFreeBlocks uint32) error {
	inodeBitmapBlocks := (layout.InodeBitmapBytes(numInodes) + layout.BlockSize - 1) / layout.BlockSize
	if inodeBitmapBlocks == 0 {
		inodeBitmapBlocks = 1
	}
	inodeTableBlocks := (numInodes + layout.InodesPerBlock - 1) / layout.InodesPerBlock
	blockBitmapBlocks := (layout.BlockBitmapBytes(numFreeBlocks) + layout.BlockSize - 1) / layout.BlockSize
	if blockBitmapBlocks == 0 {
		blockBitmapBlocks = 1
	}

	sb := &layout.Superblock{
		Magic:            layout.Magic,
		BlockSize:        layout.BlockSize,
		NumFreeBlocks:    numFreeBlocks,
		NumInodes:        numInodes,
		InodeBitmapStart: 1,
		InodeStart:       1 + inodeBitmapBlocks,
		BlockBitmapStart: 1 + inodeBitmapBlocks + inodeTableBlocks,
		FreeBlockStart:   1 + inodeBitmapBlocks + inodeTableBlocks + blockBitmapBlocks,
	}

	if err := dev.WriteBlock(0, sb.Encode()); err != nil {
		return err
	}

	zero := make([]byte, layout.BlockSize)
	for b := uint32(0); b < inodeBitmapBlocks; b++ {
		if err := dev.WriteBlock(sb.InodeBitmapStart+b, zero); err != nil {
			return err
		}
	}
	for b := uint32(0); b < blockBitmapBlocks; b++ {
		if err := dev.WriteBlock(sb.BlockBitmapStart+b, zero); err != nil {
			return err
		}
	}

	v, err := newVolume(dev, sb)
	if err != nil {
		return err
	}

	tx := v.newTxn()
	root, err := v.inodes.StageCreate(tx, true)
	if err != nil {
		return err
	}
	body := directory.NewEmpty(root.InodeNumber, root.InodeNumber)
	if err := v.dirs.Write(tx, root, body); err != nil {
		return err
	}
	if err := v.inodes.Resave(tx, root); err != nil {
		return err
	}
	return tx.Commit()
}

func newVolume(dev block.Device, sb *layout.Superblock) (*Volume, error) {
	v := &Volume{
		dev:         dev,
		sb:          sb,
		inodeBitmap: bitmap.New(dev, sb.InodeBitmapStart, sb.NumInodes),
		blockBitmap: bitmap.New(dev, sb.BlockBitmapStart, sb.NumFreeBlocks),
	}
	v.inodes = inode.New(dev, v.inodeBitmap, sb.InodeStart, sb.NumInodes)
	v.io = fileio.New(dev, v.blockBitmap, sb.FreeBlockStart)
	v.dirs = directory.New(dev, v.io, sb.FreeBlockStart)
	return v, nil
}

// Mount reads the superblock from block 0 and builds a Volume handle over
// it (spec §4.6 "mount"). It does not validate inode #1 exists; on a
// corrupt image a missing root surfaces on the first operation.
func Mount(dev block.Device) (*Volume, error) {
	blk, err := dev.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	sb, err := layout.DecodeSuperblock(blk)
	if err != nil {
		return nil, err
	}
	return newVolume(dev, sb)
}

// Umount releases the in-memory handle. There is no flush: every operation
// already commits its own transaction (spec §4.6 "umount").
func (v *Volume) Umount() {}

func (v *Volume) newTxn() *txn.Transaction {
	return txn.New(v.dev, v.inodeBitmap, v.blockBitmap, v.sb.InodeStart, v.sb.FreeBlockStart)
}

// Root returns the root directory's Dirent (inode #1).
func (v *Volume) Root() *Dirent {
	return &Dirent{v: v, inodeNumber: RootInodeNumber}
}

func checkName(name string) error {
	if len(name) > layout.FilenameMax {
		return kerrors.ErrNameTooLong
	}
	return nil
}

// loadDir loads inode `number`'s record and requires it to be a directory.
func (v *Volume) loadDir(number uint32) (*layout.Inode, *directory.List, error) {
	n, err := v.inodes.Get(number)
	if err != nil {
		return nil, nil, err
	}
	if !n.IsDirectory {
		return nil, nil, kerrors.ErrNotADirectory
	}
	list, err := v.dirs.Read(n)
	if err != nil {
		return nil, nil, err
	}
	return n, list, nil
}

// findExisting reports the physical slot of `name` in list, using the same
// prev pointer insertion would use (mirrors kevinfs_dir_add's duplicate
// check, rather than a second independent lookup_exact walk).
func findExisting(list *directory.List, name string) (prevIdx int, existingIdx int, exists bool) {
	prevIdx = list.LookupPrev(name)
	nextIdx, ok := list.NextAfter(prevIdx)
	if ok && list.Records[nextIdx].Name() == name {
		return prevIdx, nextIdx, true
	}
	return prevIdx, -1, false
}
