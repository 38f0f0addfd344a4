// Package directory implements the directory engine (spec §4.3): a packed,
// singly linked list of fixed-size records stored inside a directory
// inode's data blocks, with in-place insert/remove and dirty-block
// tracking.
//
// Grounded on kevinfs.c's kevinfs_dir_record_insert_after,
// kevinfs_dir_record_rm_after, kevinfs_lookup_dir_prev/exact, and
// kevinfs_readdir. The packed-array-plus-linked-offsets shape has a
// structural cousin in file_systems/unixv6/dirents.go, though this
// implementation follows the original C's exact swap-with-last removal and
// offset-relocation arithmetic rather than that file's layout.
package directory

import (
	"bytes"

	"github.com/basekernel-go/kfs/layout"
)

// List is an in-memory, owned copy of one directory's record array (spec
// §4.3 "read"). Dirty tracks the set of block indices (relative to the
// directory's own DirectAddresses, not absolute device blocks) that have
// been modified since Read and must be rewritten on Write.
type List struct {
	Records []layout.DirRecord
	Dirty   map[uint32]bool
}

func newList(records []layout.DirRecord) *List {
	return &List{Records: records, Dirty: make(map[uint32]bool)}
}

func blockRange(slotIndex int) (first, last uint32) {
	startByte := uint32(slotIndex) * layout.DirRecordSize
	endByte := uint32(slotIndex+1)*layout.DirRecordSize - 1
	return startByte / layout.BlockSize, endByte / layout.BlockSize
}

func (l *List) markDirty(slotIndex int) {
	first, last := blockRange(slotIndex)
	for b := first; b <= last; b++ {
		l.Dirty[b] = true
	}
}

// relocate recomputes rec's OffsetToNext after rec itself moves from
// oldIndex to newIndex, preserving the absolute target it pointed to
// (0 always means "end of list" and is left alone).
func relocate(rec *layout.DirRecord, oldIndex, newIndex int) {
	if rec.OffsetToNext == 0 {
		return
	}
	target := oldIndex + int(rec.OffsetToNext)
	rec.OffsetToNext = int32(target - newIndex)
}

// InsertAfter appends newRecord physically at the end of the packed array
// and splices it into the logical linked list immediately after physical
// slot prevIdx, or at the logical head if prevIdx < 0 (spec §4.3
// "insert_after").
func (l *List) InsertAfter(prevIdx int, newRecord layout.DirRecord) {
	newPos := len(l.Records)

	if prevIdx < 0 {
		oldHead := l.Records[0]
		relocate(&oldHead, 0, newPos)
		l.Records = append(l.Records, oldHead)
		newRecord.OffsetToNext = int32(newPos)
		l.Records[0] = newRecord
		l.markDirty(0)
		l.markDirty(newPos)
		return
	}

	prev := &l.Records[prevIdx]
	if prev.OffsetToNext == 0 {
		newRecord.OffsetToNext = 0
	} else {
		target := prevIdx + int(prev.OffsetToNext)
		newRecord.OffsetToNext = int32(target - newPos)
	}
	l.Records = append(l.Records, newRecord)
	prev.OffsetToNext = int32(newPos - prevIdx)
	l.markDirty(newPos)
	l.markDirty(prevIdx)
}

// RemoveAfter removes the record physically linked immediately after slot
// prevIdx, swapping the last physical slot into the vacated position to
// keep the array packed (spec §4.3 "remove_after").
func (l *List) RemoveAfter(prevIdx int) {
	prev := &l.Records[prevIdx]
	toRmIdx := prevIdx + int(prev.OffsetToNext)
	toRm := l.Records[toRmIdx]

	hasNext := toRm.OffsetToNext != 0
	nextIdx := toRmIdx + int(toRm.OffsetToNext)

	lastIdx := len(l.Records) - 1
	predecessorOfLast := -1

	if toRmIdx != lastIdx {
		last := l.Records[lastIdx]
		relocate(&last, lastIdx, toRmIdx)
		l.Records[toRmIdx] = last

		for i := range l.Records {
			if i == toRmIdx {
				continue
			}
			r := &l.Records[i]
			if r.OffsetToNext != 0 && i+int(r.OffsetToNext) == lastIdx {
				r.OffsetToNext = int32(toRmIdx - i)
				predecessorOfLast = i
			}
		}
		if nextIdx == lastIdx {
			nextIdx = toRmIdx
		}
		l.markDirty(lastIdx)
	}

	prevFinal := prevIdx
	if prevIdx == lastIdx && toRmIdx != lastIdx {
		prevFinal = toRmIdx
	}
	if hasNext {
		l.Records[prevFinal].OffsetToNext = int32(nextIdx - prevFinal)
	} else {
		l.Records[prevFinal].OffsetToNext = 0
	}

	l.markDirty(toRmIdx)
	l.markDirty(prevFinal)
	if predecessorOfLast >= 0 {
		l.markDirty(predecessorOfLast)
	}

	l.Records = l.Records[:lastIdx]
}

// LookupPrev walks the linked list from the head and returns the physical
// index of the last record whose filename compares strictly less than
// `name` (spec §4.3 "lookup_prev"), or -1 if no such record exists (the
// caller should insert at the logical head in that case). On a
// single-record list whose sole record compares less than `name`, that
// record is returned as prev -- spec's "empty-except-head" edge case.
func (l *List) LookupPrev(name string) int {
	padded := padName([]byte(name))
	prevIdx := -1
	idx := 0
	for bytes.Compare(l.Records[idx].Filename[:], padded) < 0 {
		prevIdx = idx
		if l.Records[idx].OffsetToNext == 0 {
			break
		}
		idx += int(l.Records[idx].OffsetToNext)
	}
	return prevIdx
}

// LookupExact walks the linked list and returns the physical index of the
// record whose filename equals `name`, and whether it was found (spec
// §4.3 "lookup_exact").
func (l *List) LookupExact(name string) (int, bool) {
	padded := padName([]byte(name))
	prevIdx := -1
	idx := 0
	for bytes.Compare(l.Records[idx].Filename[:], padded) <= 0 {
		prevIdx = idx
		if l.Records[idx].OffsetToNext == 0 {
			break
		}
		idx += int(l.Records[idx].OffsetToNext)
	}
	if prevIdx == -1 {
		return 0, false
	}
	if bytes.Equal(l.Records[prevIdx].Filename[:], padded) {
		return prevIdx, true
	}
	return 0, false
}

// NextAfter returns the physical index of the record logically following
// physical slot prevIdx (or the head, index 0, if prevIdx is -1), and
// whether one exists. This mirrors kevinfs_dir_add's duplicate-name check
// ("next = lookup + lookup->offset_to_next"), used by mkdir/mkfile/link to
// detect an existing record with the same name using the same prev pointer
// insertion will use, rather than a second independent list walk.
func (l *List) NextAfter(prevIdx int) (int, bool) {
	if prevIdx < 0 {
		return 0, true
	}
	rec := l.Records[prevIdx]
	if rec.OffsetToNext == 0 {
		return prevIdx, false
	}
	return prevIdx + int(rec.OffsetToNext), true
}

func padName(name []byte) []byte {
	padded := make([]byte, layout.FilenameMax+1)
	copy(padded, name)
	return padded
}

// Walk visits every record in logical (linked-list) order, stopping early
// if visit returns false.
func (l *List) Walk(visit func(rec *layout.DirRecord) bool) {
	idx := 0
	for {
		rec := &l.Records[idx]
		if !visit(rec) {
			return
		}
		if rec.OffsetToNext == 0 {
			return
		}
		idx += int(rec.OffsetToNext)
	}
}
