// Package vfs is the outermost adapter boundary (spec §6 "In-memory VFS
// surface", §9 "Dynamic dispatch of VFS ops"): it wraps volume.Volume,
// volume.Dirent, and volume.File behind opaque (private_data, ops_table)
// handles and collapses every error kind to the 0/-1 convention spec §6
// and §7 describe ("The outermost VFS boundary collapses all kinds to
// −1/0").
//
// Grounded on driver/fsobject.go's opaque-handle-plus-capability-table
// shape; unlike that file, every handle here is fully wired (no FIXME
// placeholder fields) since volume.Volume/Dirent/File already provide a
// complete, typed Go API for this package to adapt.
package vfs

import (
	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/volume"
)

// status is the i32 return convention of spec §6: 0 on success, -1 on any
// failure.
func status(err error) int {
	if err != nil {
		return -1
	}
	return 0
}

// VolumeOps is the capability set exposed by a mounted volume.
type VolumeOps struct {
	Root   func() *Dirent
	Umount func() int
}

// Volume is an opaque handle over a mounted filesystem.
type Volume struct {
	PrivateData *volume.Volume
	Ops         VolumeOps
}

// Mount formats nothing; it loads an already-formatted device's
// superblock and returns an opaque Volume handle (spec §6 "mount(unit) →
// Volume").
func Mount(dev block.Device) (*Volume, error) {
	v, err := volume.Mount(dev)
	if err != nil {
		return nil, err
	}
	return wrapVolume(v), nil
}

// Mkfs formats dev before it is ever mounted (spec §4.6 "mkfs").
func Mkfs(dev block.Device, numInodes, numFreeBlocks uint32) error {
	return volume.Mkfs(dev, numInodes, numFreeBlocks)
}

func wrapVolume(v *volume.Volume) *Volume {
	vol := &Volume{PrivateData: v}
	vol.Ops = VolumeOps{
		Root: func() *Dirent {
			return wrapDirent(v.Root())
		},
		Umount: func() int {
			v.Umount()
			return 0
		},
	}
	return vol
}

// DirentOps is the capability set exposed by a directory handle (spec §6:
// "Dirent.readdir/mkdir/mkfile/lookup/rmdir/open/unlink/link").
type DirentOps struct {
	Mkdir   func(name string) int
	Mkfile  func(name string) int
	Rmdir   func(name string) int
	Unlink  func(name string) int
	Link    func(oldName, newName string) int
	Lookup  func(name string) (*Dirent, bool)
	Readdir func(buf []byte) int
	Open    func(mode Mode) (*File, int)
}

// Dirent is an opaque handle over a directory.
type Dirent struct {
	PrivateData *volume.Dirent
	Ops         DirentOps
}

func wrapDirent(d *volume.Dirent) *Dirent {
	vd := &Dirent{PrivateData: d}
	vd.Ops = DirentOps{
		Mkdir:  func(name string) int { return status(d.Mkdir(name)) },
		Mkfile: func(name string) int { return status(d.Mkfile(name)) },
		Rmdir:  func(name string) int { return status(d.Rmdir(name)) },
		Unlink: func(name string) int { return status(d.Unlink(name)) },
		Link: func(oldName, newName string) int {
			return status(d.Link(oldName, newName))
		},
		Lookup: func(name string) (*Dirent, bool) {
			child, err := d.Lookup(name)
			if err != nil || child == nil {
				return nil, false
			}
			return wrapDirent(child), true
		},
		Readdir: func(buf []byte) int {
			n, err := d.Readdir(buf)
			if err != nil {
				return -1
			}
			return n
		},
		Open: func(mode Mode) (*File, int) {
			f, err := d.Open(volume.Mode(mode))
			if err != nil {
				return nil, -1
			}
			return wrapFile(f), 0
		},
	}
	return vd
}

// Mode mirrors volume.Mode at the VFS boundary so callers never import
// the volume package directly.
type Mode = volume.Mode

const (
	ModeRead  = volume.ModeRead
	ModeWrite = volume.ModeWrite
)

// FileOps is the capability set exposed by an open file handle (spec §6:
// "File.close/read/write").
type FileOps struct {
	Read  func(buf []byte) int
	Write func(buf []byte) int
	Close func() int
}

// File is an opaque handle over an open file.
type File struct {
	PrivateData *volume.File
	Ops         FileOps
}

func wrapFile(f *volume.File) *File {
	vf := &File{PrivateData: f}
	vf.Ops = FileOps{
		Read: func(buf []byte) int {
			n, err := f.Read(buf)
			if err != nil {
				return -1
			}
			return n
		},
		Write: func(buf []byte) int {
			n, err := f.Write(buf)
			if err != nil {
				return -1
			}
			return n
		},
		Close: func() int {
			return status(f.Close())
		},
	}
	return vf
}
