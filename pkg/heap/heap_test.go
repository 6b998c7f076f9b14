package heap

import (
	"os"
	"path/filepath"
	"testing"

	"mmapbtree/pkg/page"
)

func tempHeap(t *testing.T) *Heap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.db")
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestOpenInitializesTwoPageFile(t *testing.T) {
	h := tempHeap(t)
	if got := h.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}
}

func TestAllocFirstReturnsSeededFreeListPage(t *testing.T) {
	h := tempHeap(t)
	id := h.Alloc()
	if id != page.Root {
		t.Fatalf("first Alloc() = %d, want %d", id, page.Root)
	}
}

func TestAllocGrowsFileWhenFreeListExhausted(t *testing.T) {
	h := tempHeap(t)
	first := h.Alloc() // consumes the seeded free-list page itself
	if first != page.Root {
		t.Fatalf("first Alloc() = %d, want %d", first, page.Root)
	}

	second := h.Alloc() // must grow: old size 2 -> new size 4
	if second != 2 {
		t.Fatalf("second Alloc() = %d, want 2", second)
	}
	if got := h.Size(); got != 4 {
		t.Fatalf("Size() after growth = %d, want 4", got)
	}

	third := h.Alloc() // page 3 was seeded onto the free list by growth
	if third != 3 {
		t.Fatalf("third Alloc() = %d, want 3", third)
	}
}

// TestGrowPacksFreeListEntries forces a growth whose new range spans
// several pages: the range must pack into a single free-list page
// absorbing the rest as entries, not chain every page as its own
// zero-entry list node.
func TestGrowPacksFreeListEntries(t *testing.T) {
	h := tempHeap(t)

	// Drain: 1 (seeded), 2 (grow 2->4), 3, then 4 (grow 4->8), 7, 6, 5.
	for i := 0; i < 7; i++ {
		h.Alloc()
	}

	// Next alloc grows 8 -> 16; pages 9..15 become one free-list page
	// at 9 holding 10..15 as entries.
	if id := h.Alloc(); id != 8 {
		t.Fatalf("Alloc() after exhaustion = %d, want 8", id)
	}
	fl := h.hdr.freeListID()
	if fl != 9 {
		t.Fatalf("free-list head after growth = %d, want 9", fl)
	}
	head := newFreeListPage(h.frags.pageBytes(fl), false)
	if head.count() != 6 {
		t.Fatalf("head free-list page count = %d, want 6", head.count())
	}
	if head.next() != page.Null {
		t.Fatalf("head free-list page next = %d, want NULL", head.next())
	}
}

func TestFreeThenAllocReusesPage(t *testing.T) {
	h := tempHeap(t)
	id := h.Alloc()
	h.Free(id)
	again := h.Alloc()
	if again != id {
		t.Fatalf("Alloc() after Free(%d) = %d, want %d", id, again, id)
	}
}

func TestPageReturnsNilForNullAndOutOfRange(t *testing.T) {
	h := tempHeap(t)
	if got := h.Page(page.Null); got != nil {
		t.Fatalf("Page(Null) = %v, want nil", got)
	}
	if got := h.Page(999999); got != nil {
		t.Fatalf("Page(999999) = %v, want nil", got)
	}
}

func TestPageBytesPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id := h.Alloc()
	data := h.Page(id)
	data[0] = 0xAB
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h2.Close()
	if got := h2.Page(id)[0]; got != 0xAB {
		t.Fatalf("byte after reopen = %x, want ab", got)
	}
}

func TestOpenRejectsFileWithBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	if err := os.WriteFile(path, make([]byte, 2*page.Size), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("Open() on a zeroed, non-magic file: want error, got nil")
	}
}

// TestAllocFreeAllReallocAfterDoubling allocates a batch of pages (the
// file doubles several times along the way), checking every ID is
// distinct, frees every one of them, then allocates one more: that ID
// must be one seen before, and the file must not grow for it.
func TestAllocFreeAllReallocAfterDoubling(t *testing.T) {
	h := tempHeap(t)

	const batch = 128
	ids := make([]page.ID, batch)
	seen := make(map[page.ID]bool, batch)
	for i := range ids {
		id := h.Alloc()
		if seen[id] {
			t.Fatalf("Alloc() returned duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
		ids[i] = id
	}

	for _, id := range ids {
		h.Free(id)
	}

	sizeBeforeRealloc := h.Size()
	next := h.Alloc()
	if !seen[next] {
		t.Fatalf("Alloc() after freeing the whole batch returned unseen id %d", next)
	}
	if h.Size() != sizeBeforeRealloc {
		t.Fatalf("Size() grew on a realloc that should have hit the free list: %d -> %d", sizeBeforeRealloc, h.Size())
	}
}

func TestManyAllocDistinctIDs(t *testing.T) {
	h := tempHeap(t)
	seen := make(map[page.ID]bool)
	for i := 0; i < 5000; i++ {
		id := h.Alloc()
		if seen[id] {
			t.Fatalf("Alloc() returned duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}
