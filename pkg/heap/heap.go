// Package heap implements the mapped heap: a page allocator over a single
// memory-mapped file that grows on demand, persists its free-list inside
// the file, and hands out stable page() pointers under concurrent access.
package heap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mmapbtree/pkg/lock"
	"mmapbtree/pkg/page"
)

// Heap is a page allocator backed by a single mmap'd file.
type Heap struct {
	file  *os.File
	frags *fragments
	hdr   header

	allocMu  *lock.Mutex
	resizeMu *lock.Mutex
}

// Open opens path, creating and initializing it if it does not exist. A
// fresh file is built in a temp file beside path and renamed into place,
// so no opener ever observes a half-written header.
func Open(path string) (*Heap, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if errors.Is(err, os.ErrNotExist) {
		if err := createInitialized(path); err != nil {
			return nil, err
		}
		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("heap: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("heap: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		// A leftover empty file (created but never initialized) is
		// indistinguishable from a fresh one; initialize it in place.
		if err := Initialize(f); err != nil {
			f.Close()
			return nil, err
		}
	}

	h, err := OpenFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

// createInitialized writes a fresh two-page heap into a temp file in
// path's directory and renames it onto path.
func createInitialized(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("heap: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Initialize(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("heap: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("heap: rename temp file into place: %w", err)
	}
	return nil
}

// OpenFile opens an already-initialized heap file, validating its magic.
func OpenFile(f *os.File) (*Heap, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("heap: stat: %w", err)
	}
	if info.Size()%page.Size != 0 {
		return nil, fmt.Errorf("heap: file size %d is not a multiple of the page size", info.Size())
	}
	pages := uint64(info.Size()) / page.Size
	if pages < 2 {
		return nil, fmt.Errorf("heap: file too small to contain a header and free-list page")
	}

	frags := newFragments(f)
	if err := frags.mapInitial(pages); err != nil {
		return nil, err
	}

	hdr := newHeader(frags.pageBytes(0))
	if !hdr.magicOK() {
		frags.close()
		return nil, fmt.Errorf("heap: bad magic")
	}
	hdr.resetLocks()

	h := &Heap{
		file:  f,
		frags: frags,
		hdr:   hdr,
	}
	h.allocMu = lock.NewMutex(hdr.allocLockWord())
	h.resizeMu = lock.NewMutex(hdr.resizeLockWord())
	return h, nil
}

// Initialize writes a fresh two-page file: the header page, and a single
// free-list page at PageID 1 with n_entries=0 and next=NULL.
func Initialize(f *os.File) error {
	if err := f.Truncate(2 * page.Size); err != nil {
		return fmt.Errorf("heap: truncate: %w", err)
	}

	frags := newFragments(f)
	if err := frags.mapInitial(2); err != nil {
		return err
	}
	defer frags.close()

	hdr := newHeader(frags.pageBytes(0))
	hdr.initMagic()
	hdr.setSize(2)
	hdr.setFreeListID(1)
	hdr.resetLocks()

	newFreeListPage(frags.pageBytes(1), true)
	return nil
}

// Close unmaps the file. The caller must ensure no operation still holds
// a pointer returned by Page.
func (h *Heap) Close() error {
	if err := h.frags.close(); err != nil {
		return err
	}
	return h.file.Close()
}

// Page returns a stable, process-address slice of id's 4096 bytes, or nil
// if id is NULL or not currently within the file.
func (h *Heap) Page(id page.ID) []byte {
	if id == page.Null || id >= h.hdr.size() {
		return nil
	}
	return h.frags.pageBytes(id)
}

// Alloc always succeeds, growing the file if the free-list is exhausted.
// It panics if the OS refuses the growth.
func (h *Heap) Alloc() page.ID {
	id, err := h.alloc()
	if err != nil {
		panic(fmt.Sprintf("heap: alloc: %v", err))
	}
	return id
}

// TryAlloc behaves like Alloc but returns (0, false) instead of panicking
// when the OS refuses a required file growth.
func (h *Heap) TryAlloc() (page.ID, bool) {
	id, err := h.alloc()
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Heap) alloc() (page.ID, error) {
	h.allocMu.Lock()
	defer h.allocMu.Unlock()

	if fl := h.hdr.freeListID(); fl != page.Null {
		flPage := newFreeListPage(h.frags.pageBytes(fl), false)
		if flPage.count() > 0 {
			return flPage.pop(), nil
		}
		// The head page has no queued entries left: it consumes itself.
		h.hdr.setFreeListID(flPage.next())
		return fl, nil
	}

	return h.grow()
}

// grow doubles the file size and chains the newly available pages onto
// the free list, returning the first of them (which the caller takes as
// its allocation without ever entering the free list).
func (h *Heap) grow() (page.ID, error) {
	oldPages := h.hdr.size()
	newPages := oldPages * 2

	h.resizeMu.Lock()
	if err := h.file.Truncate(int64(newPages * page.Size)); err != nil {
		h.resizeMu.Unlock()
		return 0, fmt.Errorf("grow: truncate: %w", err)
	}
	h.hdr.setSize(newPages)
	h.resizeMu.Unlock()

	if err := h.frags.grow(oldPages, newPages); err != nil {
		return 0, fmt.Errorf("grow: %w", err)
	}

	// Chain the new pages [firstFree, newPages) onto the free list,
	// working backward in chunks of up to FreeListEntries+1 pages: the
	// lowest page of each chunk becomes a free-list page absorbing the
	// rest as entries, so only every 511th page carries list metadata.
	// The last chunk built starts at firstFree and ends up as the head.
	firstFree := oldPages + 1
	for hi := newPages; hi > firstFree; {
		lo := firstFree
		if hi-firstFree > FreeListEntries+1 {
			lo = hi - (FreeListEntries + 1)
		}
		head := newFreeListPage(h.frags.pageBytes(lo), true)
		for id := lo + 1; id < hi; id++ {
			head.push(id)
		}
		head.setNext(h.hdr.freeListID())
		h.hdr.setFreeListID(lo)
		hi = lo
	}

	return oldPages, nil
}

// Free releases id back to the heap. Double-freeing or freeing NULL is
// undefined per the on-disk free-list invariants; freeing NULL panics
// since it is unambiguously a caller error.
func (h *Heap) Free(id page.ID) {
	if id == page.Null {
		panic("heap: free of NULL page")
	}

	h.allocMu.Lock()
	defer h.allocMu.Unlock()

	if fl := h.hdr.freeListID(); fl != page.Null {
		flPage := newFreeListPage(h.frags.pageBytes(fl), false)
		if flPage.count() < FreeListEntries {
			flPage.push(id)
			if data := h.frags.pageBytes(id); data != nil {
				madviseRemove(data)
			}
			return
		}
	}
	h.chainFree(id)
}

// chainFree turns id into a new free-list head pointing at the previous
// head, without hole-punching (used by Free when the free list is empty
// or the current head page has no entry slots left).
func (h *Heap) chainFree(id page.ID) {
	prev := h.hdr.freeListID()
	newHead := newFreeListPage(h.frags.pageBytes(id), true)
	newHead.setNext(prev)
	h.hdr.setFreeListID(id)
}

// Size returns the total number of pages currently in the file.
func (h *Heap) Size() page.ID {
	return h.hdr.size()
}
