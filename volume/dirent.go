package volume

import (
	"github.com/basekernel-go/kfs/directory"
	kerrors "github.com/basekernel-go/kfs/errors"
	"github.com/basekernel-go/kfs/layout"
)

// Dirent is a handle to a directory, the receiver of every path-level
// operation in spec §4.5. It carries only an inode number; every method
// re-reads state fresh from the volume, matching spec §5's "Inode structs
// returned by get are private per-operation copies".
type Dirent struct {
	v           *Volume
	inodeNumber uint32
}

// InodeNumber returns the inode number this Dirent refers to.
func (d *Dirent) InodeNumber() uint32 {
	return d.inodeNumber
}

func (d *Dirent) child(inodeNumber uint32) *Dirent {
	return &Dirent{v: d.v, inodeNumber: inodeNumber}
}

// Mkdir creates a new, empty subdirectory named `name` (spec §4.5
// "mkdir"). Fails ErrExists if `name` is already present, ErrNameTooLong,
// or ErrNoSpace.
func (d *Dirent) Mkdir(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	tx := d.v.newTxn()
	parent, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return err
	}

	prevIdx, _, exists := findExisting(list, name)
	if exists {
		return kerrors.ErrExists
	}

	child, err := d.v.inodes.StageCreate(tx, true)
	if err != nil {
		return err
	}
	body := directory.NewEmpty(child.InodeNumber, parent.InodeNumber)
	if err := d.v.dirs.Write(tx, child, body); err != nil {
		return err
	}

	// init_record_by_filename: the new record's target gains a link (in
	// addition to the self-reference link_count already carries).
	child.LinkCount++
	rec := layout.NewDirRecord(name, child.InodeNumber, true, 0)
	list.InsertAfter(prevIdx, rec)
	// dir_add: inserting any record into a directory bumps that
	// directory's own link_count, carried over from kevinfs_dir_add even
	// though nothing later decrements it on unlink (see DESIGN.md).
	parent.LinkCount++

	if err := d.v.dirs.Write(tx, parent, list); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, child); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, parent); err != nil {
		return err
	}
	return tx.Commit()
}

// Mkfile creates a new, empty regular file named `name` (spec §4.5
// "mkfile"). Unlike kevinfs_mkfile, it does not write a bogus "." / ".."
// body into the new file's blocks (spec §9 open question, not replicated).
func (d *Dirent) Mkfile(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	tx := d.v.newTxn()
	parent, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return err
	}

	prevIdx, _, exists := findExisting(list, name)
	if exists {
		return kerrors.ErrExists
	}

	child, err := d.v.inodes.StageCreate(tx, false)
	if err != nil {
		return err
	}

	child.LinkCount++
	rec := layout.NewDirRecord(name, child.InodeNumber, false, 0)
	list.InsertAfter(prevIdx, rec)
	parent.LinkCount++

	if err := d.v.dirs.Write(tx, parent, list); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, child); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, parent); err != nil {
		return err
	}
	return tx.Commit()
}

// Rmdir removes the empty subdirectory named `name` (spec §4.5 "rmdir").
// Fails ErrNotFound, ErrNotADirectory, or ErrNotEmpty if the target has
// more than its "." / ".." body.
func (d *Dirent) Rmdir(name string) error {
	tx := d.v.newTxn()
	parent, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return err
	}

	prevIdx, idx, exists := findExisting(list, name)
	if !exists {
		return kerrors.ErrNotFound
	}
	rec := list.Records[idx]
	if !rec.IsDirectory {
		return kerrors.ErrNotADirectory
	}

	target, err := d.v.inodes.Get(rec.InodeNumber)
	if err != nil {
		return err
	}
	const emptyDirSizeBytes = 2 * layout.DirRecordSize
	if target.SizeBytes != emptyDirSizeBytes {
		return kerrors.ErrNotEmpty
	}

	list.RemoveAfter(prevIdx)
	parent.LinkCount--
	if err := d.v.dirs.Write(tx, parent, list); err != nil {
		return err
	}
	if err := d.v.inodes.StageDeleteOrDecr(tx, target); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, parent); err != nil {
		return err
	}
	return tx.Commit()
}

// Unlink removes the directory record named `name` and decrements its
// target's link_count, deleting the inode and its blocks once the count
// reaches zero (spec §4.5 "unlink"). Fails ErrNotFound or ErrIsADirectory.
func (d *Dirent) Unlink(name string) error {
	tx := d.v.newTxn()
	parent, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return err
	}

	prevIdx, idx, exists := findExisting(list, name)
	if !exists {
		return kerrors.ErrNotFound
	}
	rec := list.Records[idx]
	if rec.IsDirectory {
		return kerrors.ErrIsADirectory
	}

	target, err := d.v.inodes.Get(rec.InodeNumber)
	if err != nil {
		return err
	}

	list.RemoveAfter(prevIdx)
	if err := d.v.dirs.Write(tx, parent, list); err != nil {
		return err
	}
	if err := d.v.inodes.StageDeleteOrDecr(tx, target); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, parent); err != nil {
		return err
	}
	return tx.Commit()
}

// Link creates an additional directory record `new_name` pointing at the
// existing file `name`, bumping its link_count (spec §4.5 "link"). Fails
// ErrNotFound, ErrIsADirectory (no hard links to directories), or
// ErrExists if `new_name` is already present.
func (d *Dirent) Link(name, newName string) error {
	if err := checkName(newName); err != nil {
		return err
	}

	tx := d.v.newTxn()
	parent, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return err
	}

	_, existingIdx, found := findExisting(list, name)
	if !found {
		return kerrors.ErrNotFound
	}
	target, err := d.v.inodes.Get(list.Records[existingIdx].InodeNumber)
	if err != nil {
		return err
	}
	if target.IsDirectory {
		return kerrors.ErrIsADirectory
	}

	prevIdx, _, exists := findExisting(list, newName)
	if exists {
		return kerrors.ErrExists
	}

	target.LinkCount++
	rec := layout.NewDirRecord(newName, target.InodeNumber, false, 0)
	list.InsertAfter(prevIdx, rec)
	parent.LinkCount++

	if err := d.v.dirs.Write(tx, parent, list); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, parent); err != nil {
		return err
	}
	if err := d.v.inodes.Resave(tx, target); err != nil {
		return err
	}
	return tx.Commit()
}

// Lookup resolves `name` within d, wrapping lookup_exact (spec §4.5
// "lookup"). Returns (nil, nil) if not found.
func (d *Dirent) Lookup(name string) (*Dirent, error) {
	_, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return nil, err
	}
	idx, found := list.LookupExact(name)
	if !found {
		return nil, nil
	}
	return d.child(list.Records[idx].InodeNumber), nil
}

// Readdir formats every record's name into buf separated by single
// spaces, walking in linked-list order and stopping once appending the
// next name plus its separator would overflow buf (spec §4.5 "readdir").
// It returns the number of bytes written.
func (d *Dirent) Readdir(buf []byte) (int, error) {
	_, list, err := d.v.loadDir(d.inodeNumber)
	if err != nil {
		return 0, err
	}

	total := 0
	list.Walk(func(rec *layout.DirRecord) bool {
		name := rec.Name()
		if total+len(name)+1 > len(buf) {
			return false
		}
		copy(buf[total:], name)
		buf[total+len(name)] = ' '
		total += len(name) + 1
		return true
	})
	return total, nil
}

// Open returns a file handle at offset 0 over d's inode and mode (spec
// §4.5 "open"). No I/O occurs and no transaction is created, matching the
// spec's note that kevinfs_open's empty commit is harmless but removable
// (spec §9).
func (d *Dirent) Open(mode Mode) (*File, error) {
	return &File{v: d.v, inodeNumber: d.inodeNumber, mode: mode}, nil
}
