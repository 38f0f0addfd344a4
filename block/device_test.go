package block

import (
	"testing"

	"github.com/xaionaro-go/bytesextra"
)

func newTestDevice(t *testing.T, numBlocks uint32, blockSize int) Device {
	t.Helper()
	buf := make([]byte, int(numBlocks)*blockSize)
	return NewMemoryDevice(bytesextra.NewReadWriteSeeker(buf), numBlocks, blockSize)
}

func TestReadWriteBlockRoundTrip(t *testing.T) {
	dev := newTestDevice(t, 4, 16)
	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := dev.WriteBlock(2, payload); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := dev.ReadBlock(2)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], payload[i])
		}
	}
}

func TestReadBlockOutOfRange(t *testing.T) {
	dev := newTestDevice(t, 2, 16)
	if _, err := dev.ReadBlock(5); err == nil {
		t.Fatal("expected an error reading out-of-range block")
	}
}

func TestReadWriteByteAtCrossesBlocks(t *testing.T) {
	dev := newTestDevice(t, 4, 4)
	if err := WriteByteAt(dev, 0, 5, 0xAB); err != nil {
		t.Fatalf("WriteByteAt: %v", err)
	}
	got, err := ReadByteAt(dev, 0, 5)
	if err != nil {
		t.Fatalf("ReadByteAt: %v", err)
	}
	if got != 0xAB {
		t.Fatalf("got %x want 0xAB", got)
	}
}
