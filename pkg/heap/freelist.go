package heap

import (
	"encoding/binary"

	"mmapbtree/pkg/page"
)

// FreeListEntries is the number of PageIDs a single free-list page can
// hold: (4096 - 8 n_entries - 8 next) / 8.
const FreeListEntries = 510

const (
	flEntriesOffset = 8
	flEntrySize     = 8
	flNextOffset    = flEntriesOffset + FreeListEntries*flEntrySize // 4088
)

// freeListPage is an accessor over one free-list page's raw bytes:
//
//	0..8                n_entries (uint64)
//	8..8+510*8          entries[510] (PageID, uint64 each)
//	4088..4096          next (PageID)
type freeListPage struct {
	data []byte
}

func newFreeListPage(data []byte, init bool) freeListPage {
	p := freeListPage{data: data}
	if init {
		p.setCount(0)
		p.setNext(page.Null)
	}
	return p
}

func (p freeListPage) count() int {
	return int(binary.LittleEndian.Uint64(p.data[0:8]))
}

func (p freeListPage) setCount(n int) {
	binary.LittleEndian.PutUint64(p.data[0:8], uint64(n))
}

func (p freeListPage) entry(i int) page.ID {
	off := flEntriesOffset + i*flEntrySize
	return binary.LittleEndian.Uint64(p.data[off : off+8])
}

func (p freeListPage) setEntry(i int, id page.ID) {
	off := flEntriesOffset + i*flEntrySize
	binary.LittleEndian.PutUint64(p.data[off:off+8], id)
}

func (p freeListPage) next() page.ID {
	return binary.LittleEndian.Uint64(p.data[flNextOffset : flNextOffset+8])
}

func (p freeListPage) setNext(id page.ID) {
	binary.LittleEndian.PutUint64(p.data[flNextOffset:flNextOffset+8], id)
}

// push appends id to the page. Caller must have checked count() < FreeListEntries.
func (p freeListPage) push(id page.ID) {
	n := p.count()
	p.setEntry(n, id)
	p.setCount(n + 1)
}

// pop removes and returns the last entry. Caller must have checked count() > 0.
func (p freeListPage) pop() page.ID {
	n := p.count() - 1
	id := p.entry(n)
	p.setCount(n)
	return id
}
