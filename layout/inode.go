package layout

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// InodeSize is sizeof(Inode) on disk: inode_number, is_directory, size_bytes,
// direct_addresses_len, link_count (5 x u32) plus MaxDirect direct
// addresses (u32 each).
const InodeSize = 4*5 + 4*MaxDirect

// InodesPerBlock is BLOCKSIZE / sizeof(Inode) (spec §3).
const InodesPerBlock = BlockSize / InodeSize

// Inode is the decoded, fixed-size metadata record for one file or
// directory (spec §3 "Inode"). InodeNumber is 1-based; 0 means "none".
type Inode struct {
	InodeNumber        uint32
	IsDirectory        bool
	SizeBytes          uint32
	DirectAddressesLen uint32
	DirectAddresses    [MaxDirect]uint32
	LinkCount          uint32
}

// Location computes the (block, offset) pair an inode number is stored at,
// relative to the start of the inode table region (spec §4.2).
func Location(inodeNumber uint32) (block uint32, offset uint32) {
	index := inodeNumber - 1
	return index / InodesPerBlock, (index % InodesPerBlock) * InodeSize
}

// Encode serializes the inode into exactly InodeSize bytes.
func (n *Inode) Encode() []byte {
	buf := make([]byte, InodeSize)
	w := bytewriter.New(buf)
	binary.Write(w, binary.LittleEndian, n.InodeNumber)
	var isDir uint32
	if n.IsDirectory {
		isDir = 1
	}
	binary.Write(w, binary.LittleEndian, isDir)
	binary.Write(w, binary.LittleEndian, n.SizeBytes)
	binary.Write(w, binary.LittleEndian, n.DirectAddressesLen)
	binary.Write(w, binary.LittleEndian, n.LinkCount)
	for i := 0; i < MaxDirect; i++ {
		binary.Write(w, binary.LittleEndian, n.DirectAddresses[i])
	}
	return buf
}

// DecodeInode parses an InodeSize-byte buffer produced by Encode.
func DecodeInode(buf []byte) *Inode {
	n := &Inode{}
	n.InodeNumber = binary.LittleEndian.Uint32(buf[0:4])
	n.IsDirectory = binary.LittleEndian.Uint32(buf[4:8]) != 0
	n.SizeBytes = binary.LittleEndian.Uint32(buf[8:12])
	n.DirectAddressesLen = binary.LittleEndian.Uint32(buf[12:16])
	n.LinkCount = binary.LittleEndian.Uint32(buf[16:20])
	for i := 0; i < MaxDirect; i++ {
		off := 20 + i*4
		n.DirectAddresses[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return n
}
