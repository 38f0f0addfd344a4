package directory

import (
	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/fileio"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/txn"
)

// Engine reads and writes a directory's record list through its owning
// inode, translating direct block addresses into device block numbers and
// driving fileio.Resize to grow/shrink the inode's storage on Write.
type Engine struct {
	dev            block.Device
	io             *fileio.IO
	freeBlockStart uint32
}

// New creates an Engine bound to a volume's data region.
func New(dev block.Device, io *fileio.IO, freeBlockStart uint32) *Engine {
	return &Engine{dev: dev, io: io, freeBlockStart: freeBlockStart}
}

// Read loads every record of n's data blocks into an owned List (spec
// §4.3 "read").
func (e *Engine) Read(n *layout.Inode) (*List, error) {
	numRecords := n.SizeBytes / layout.DirRecordSize
	records := make([]layout.DirRecord, 0, numRecords)

	var data []byte
	for i := uint32(0); i < n.DirectAddressesLen; i++ {
		blk, err := e.dev.ReadBlock(e.freeBlockStart + n.DirectAddresses[i])
		if err != nil {
			return nil, err
		}
		data = append(data, blk...)
	}

	for i := uint32(0); i < numRecords; i++ {
		off := i * layout.DirRecordSize
		records = append(records, layout.DecodeDirRecord(data[off:off+layout.DirRecordSize]))
	}
	return newList(records), nil
}

// Write resizes n's direct-block list to fit the current record count and
// stages a MODIFY for each block in the dirty set, updating n.SizeBytes
// (spec §4.3 "write").
func (e *Engine) Write(tx *txn.Transaction, n *layout.Inode, list *List) error {
	nBlocks := (uint32(len(list.Records))*layout.DirRecordSize + layout.BlockSize - 1) / layout.BlockSize
	if err := e.io.Resize(tx, n, nBlocks); err != nil {
		return err
	}

	data := make([]byte, nBlocks*layout.BlockSize)
	for i, rec := range list.Records {
		off := uint32(i) * layout.DirRecordSize
		copy(data[off:off+layout.DirRecordSize], rec.Encode())
	}

	for blk := range list.Dirty {
		if blk >= n.DirectAddressesLen {
			continue
		}
		start := blk * layout.BlockSize
		tx.StageModifyBlock(n.DirectAddresses[blk], data[start:start+layout.BlockSize])
	}

	n.SizeBytes = uint32(len(list.Records)) * layout.DirRecordSize
	return nil
}

// NewEmpty builds the initial "." / ".." body of a freshly created
// directory: two records, "." -> self, ".." -> parent, linked 0 -> 1 -> end
// (spec §3 "An empty directory has exactly two entries").
func NewEmpty(self, parent uint32) *List {
	records := []layout.DirRecord{
		layout.NewDirRecord(".", self, true, 1),
		layout.NewDirRecord("..", parent, true, 0),
	}
	list := newList(records)
	list.Dirty[0] = true
	return list
}
