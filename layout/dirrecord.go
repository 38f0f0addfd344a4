package layout

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// DirRecordSize is sizeof(DirRecord): filename (FilenameMax+1 bytes, the
// extra byte keeping the field round) + inode_number (u32) +
// is_directory (u32) + offset_to_next (i32).
const DirRecordSize = (FilenameMax + 1) + 4 + 4 + 4

// DirRecord is one fixed-size entry in a directory's packed record array
// (spec §3 "Directory record").
type DirRecord struct {
	Filename     [FilenameMax + 1]byte
	InodeNumber  uint32
	IsDirectory  bool
	OffsetToNext int32
}

// NewDirRecord builds a record from a Go string filename, NUL-padding it.
func NewDirRecord(name string, inodeNumber uint32, isDirectory bool, offsetToNext int32) DirRecord {
	var rec DirRecord
	copy(rec.Filename[:], name)
	rec.InodeNumber = inodeNumber
	rec.IsDirectory = isDirectory
	rec.OffsetToNext = offsetToNext
	return rec
}

// Name returns the filename with trailing NUL padding stripped.
func (r *DirRecord) Name() string {
	n := 0
	for n < len(r.Filename) && r.Filename[n] != 0 {
		n++
	}
	return string(r.Filename[:n])
}

// IsEmpty reports whether this slot has never held a record (spec §3:
// "Empty record slots are zeroed.").
func (r *DirRecord) IsEmpty() bool {
	return r.InodeNumber == 0 && r.Filename[0] == 0
}

func (r *DirRecord) Encode() []byte {
	buf := make([]byte, DirRecordSize)
	w := bytewriter.New(buf)
	w.Write(r.Filename[:])
	binary.Write(w, binary.LittleEndian, r.InodeNumber)
	var isDir uint32
	if r.IsDirectory {
		isDir = 1
	}
	binary.Write(w, binary.LittleEndian, isDir)
	binary.Write(w, binary.LittleEndian, r.OffsetToNext)
	return buf
}

func DecodeDirRecord(buf []byte) DirRecord {
	var r DirRecord
	copy(r.Filename[:], buf[0:FilenameMax+1])
	base := FilenameMax + 1
	r.InodeNumber = binary.LittleEndian.Uint32(buf[base : base+4])
	r.IsDirectory = binary.LittleEndian.Uint32(buf[base+4:base+8]) != 0
	r.OffsetToNext = int32(binary.LittleEndian.Uint32(buf[base+8 : base+12]))
	return r
}
