package deque

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// TestHeaderLayoutStride enforces the deque header's false-sharing
// invariant: front and back must be more than 127 bytes apart so they
// never share a cache line, checked via unsafe.Offsetof the same way a
// cpu.CacheLinePad-padded struct's field offsets get asserted elsewhere.
func TestHeaderLayoutStride(t *testing.T) {
	var d Deque[int]
	stride := unsafe.Offsetof(d.back) - unsafe.Offsetof(d.front)
	if stride <= 127 {
		t.Fatalf("front/back stride is %d bytes, want > 127", stride)
	}

	padSize := unsafe.Sizeof(cpu.CacheLinePad{})
	if padSize == 0 {
		t.Fatal("cpu.CacheLinePad must not be zero-sized")
	}
}
