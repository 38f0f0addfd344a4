package bitmap

import (
	"testing"

	"github.com/xaionaro-go/bytesextra"

	"github.com/basekernel-go/kfs/block"
)

func newDevice(t *testing.T, numBlocks uint32, blockSize int) block.Device {
	t.Helper()
	buf := make([]byte, int(numBlocks)*blockSize)
	return block.NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, blockSize)
}

func TestFindFreeOnEmptyBitmap(t *testing.T) {
	dev := newDevice(t, 1, 16)
	a := New(dev, 0, 64)
	idx, err := a.FindFree(nil)
	if err != nil {
		t.Fatalf("FindFree: %v", err)
	}
	if idx != 0 {
		t.Fatalf("got %d want 0", idx)
	}
}

func TestFindFreeSkipsSetBits(t *testing.T) {
	dev := newDevice(t, 1, 16)
	a := New(dev, 0, 64)
	if err := a.SetBit(0, true); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	if err := a.SetBit(1, true); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	idx, err := a.FindFree(nil)
	if err != nil {
		t.Fatalf("FindFree: %v", err)
	}
	if idx != 2 {
		t.Fatalf("got %d want 2", idx)
	}
}

func TestFindFreeHonorsReserved(t *testing.T) {
	dev := newDevice(t, 1, 16)
	a := New(dev, 0, 64)
	idx, err := a.FindFree(func(i uint32) bool { return i == 0 })
	if err != nil {
		t.Fatalf("FindFree: %v", err)
	}
	if idx != 1 {
		t.Fatalf("got %d want 1", idx)
	}
}

func TestFindFreeNoSpace(t *testing.T) {
	dev := newDevice(t, 1, 1)
	a := New(dev, 0, 8)
	for i := uint32(0); i < 8; i++ {
		if err := a.SetBit(i, true); err != nil {
			t.Fatalf("SetBit(%d): %v", i, err)
		}
	}
	if _, err := a.FindFree(nil); err == nil {
		t.Fatal("expected ErrNoSpace")
	}
}

func TestCheckBit(t *testing.T) {
	dev := newDevice(t, 1, 16)
	a := New(dev, 0, 64)
	if err := a.SetBit(10, true); err != nil {
		t.Fatalf("SetBit: %v", err)
	}
	set, err := a.CheckBit(10)
	if err != nil {
		t.Fatalf("CheckBit: %v", err)
	}
	if !set {
		t.Fatal("expected bit 10 to be set")
	}
	clear, err := a.CheckBit(11)
	if err != nil {
		t.Fatalf("CheckBit: %v", err)
	}
	if clear {
		t.Fatal("expected bit 11 to be clear")
	}
}
