package heap

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"mmapbtree/pkg/page"
)

// fragment describes one contiguous virtual-address region covering a
// contiguous run of pages [offset, offset+pages).
type fragment struct {
	offset page.ID
	pages  uint64
	data   []byte
}

func (f *fragment) end() page.ID { return f.offset + f.pages }

// fragments is the ordered, non-overlapping sequence of regions covering
// a prefix of [0, header.size), header page included. It is guarded by its own reader-writer
// lock: Page binary-searches it under a read lock; growth takes the
// write lock and either extends the last fragment in place or appends a
// new one. Fragments are only ever extended or appended to, never
// unmapped or moved, while the heap is open: any page() pointer handed
// out earlier must stay valid.
type fragments struct {
	mu   sync.RWMutex
	file *os.File
	list []fragment
}

func newFragments(f *os.File) *fragments {
	return &fragments{file: f}
}

// mapInitial maps the first `pages` pages of the file as the sole
// fragment. Called once, while opening.
func (fs *fragments) mapInitial(pages uint64) error {
	data, err := mmapRegion(fs.file, 0, int(pages*page.Size))
	if err != nil {
		return fmt.Errorf("mmap initial region: %w", err)
	}
	fs.list = []fragment{{offset: 0, pages: pages, data: data}}
	return nil
}

// pageBytes returns the PageSize-byte slice backing id, or nil if id is
// out of the currently mapped range.
func (fs *fragments) pageBytes(id page.ID) []byte {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	i := sort.Search(len(fs.list), func(i int) bool {
		return fs.list[i].end() > id
	})
	if i == len(fs.list) || id < fs.list[i].offset {
		return nil
	}
	f := &fs.list[i]
	rel := (id - f.offset) * page.Size
	return f.data[rel : rel+page.Size]
}

// grow extends fragment coverage from oldPages to newPages, preferring to
// extend the last fragment's mapping in place; it appends a fresh
// fragment when the kernel cannot grant that extension at the existing
// virtual address.
func (fs *fragments) grow(oldPages, newPages uint64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.list) == 0 {
		return fs.mapInitial(newPages)
	}

	last := &fs.list[len(fs.list)-1]
	if last.end() != oldPages {
		return fmt.Errorf("fragment list does not cover a contiguous prefix: last.end=%d oldPages=%d", last.end(), oldPages)
	}

	addedPages := newPages - oldPages
	newLast := last.pages + addedPages
	if grown, ok, err := mremapInPlace(last.data, int(newLast*page.Size)); err != nil {
		return fmt.Errorf("mremap: %w", err)
	} else if ok {
		last.data = grown
		last.pages = newLast
		return nil
	}

	data, err := mmapRegion(fs.file, int64(oldPages*page.Size), int(addedPages*page.Size))
	if err != nil {
		return fmt.Errorf("mmap growth fragment: %w", err)
	}
	fs.list = append(fs.list, fragment{offset: oldPages, pages: addedPages, data: data})
	return nil
}

// close unmaps every fragment. Only valid once no operation may still
// hold a page() pointer into any of them.
func (fs *fragments) close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.list {
		if err := munmapRegion(fs.list[i].data); err != nil {
			return fmt.Errorf("munmap fragment %d: %w", i, err)
		}
	}
	fs.list = nil
	return nil
}
