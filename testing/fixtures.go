// Package testing provides named, in-memory device fixtures for KFS's own
// test suites: a device geometry table loaded through gocsv (the same
// loader the teacher's disks package uses for physical floppy geometries),
// plus a helper that formats and mounts one.
//
// Adapted from disks/disks.go: the CSV-driven named-table shape survives,
// but the columns are KFS's own (NumBlocks/NumInodes/NumFreeBlocks) rather
// than sector/head/track geometry, since KFS addresses by block, not by
// physical disk layout.
package testing

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/block"
	"github.com/basekernel-go/kfs/layout"
	"github.com/basekernel-go/kfs/volume"
)

// Geometry is one named device-size preset for tests.
type Geometry struct {
	Label         string `csv:"label"`
	NumBlocks     uint   `csv:"num_blocks"`
	NumInodes     uint   `csv:"num_inodes"`
	NumFreeBlocks uint   `csv:"num_free_blocks"`
}

const geometriesCSV = `label,num_blocks,num_inodes,num_free_blocks
tiny,32,16,16
small,256,64,128
medium,2048,256,1536
large,16384,1024,14000
`

var geometries map[string]Geometry

func init() {
	geometries = make(map[string]Geometry)
	err := gocsv.UnmarshalToCallback(
		strings.NewReader(geometriesCSV),
		func(row Geometry) error {
			if _, exists := geometries[row.Label]; exists {
				return fmt.Errorf("duplicate fixture geometry %q", row.Label)
			}
			geometries[row.Label] = row
			return nil
		},
	)
	if err != nil {
		panic(err)
	}
}

// NamedGeometry returns the named preset, or an error if no such label exists.
func NamedGeometry(label string) (Geometry, error) {
	g, ok := geometries[label]
	if !ok {
		return Geometry{}, fmt.Errorf("no fixture geometry named %q", label)
	}
	return g, nil
}

// NewDevice builds a fresh, zero-filled in-memory block.Device sized for
// the named geometry.
func NewDevice(label string) (block.Device, error) {
	g, err := NamedGeometry(label)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, uint64(g.NumBlocks)*layout.BlockSize)
	return block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), uint32(g.NumBlocks), layout.BlockSize), nil
}

// MountFormatted formats a fresh device for the named geometry and mounts
// it, returning the ready-to-use Volume.
func MountFormatted(label string) (*volume.Volume, error) {
	g, err := NamedGeometry(label)
	if err != nil {
		return nil, err
	}
	dev, err := NewDevice(label)
	if err != nil {
		return nil, err
	}
	if err := volume.Mkfs(dev, uint32(g.NumInodes), uint32(g.NumFreeBlocks)); err != nil {
		return nil, err
	}
	return volume.Mount(dev)
}
