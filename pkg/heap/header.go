package heap

import (
	"encoding/binary"

	"mmapbtree/pkg/page"
)

// header layout (page 0), 4096 bytes, little-endian:
//
//	0..16   magic (16 bytes)
//	16..24  size: total pages currently in the file
//	24..32  freelist_id: head of the free-list chain, NULL when empty
//	64..68  resize_lock word (its own cache line)
//	128..132 alloc_lock word (its own cache line)
//	remainder zero-padded
const (
	magicOffset      = 0
	magicSize        = 16
	sizeOffset       = 16
	freeListIDOffset = 24
	resizeLockOffset = 64
	allocLockOffset  = 128
)

// magic identifies the file as a mapped heap of this format and version.
var magic = [magicSize]byte{'M', 'A', 'P', 'H', 'E', 'A', 'P', 0, 1, 0, 0, 0, 0, 0, 0, 0}

// header is a thin accessor over the live bytes of page 0. Every method
// reads or writes directly through the mmap'd slice so changes are
// immediately visible to every fragment mapping the same page.
type header struct {
	data []byte
}

func newHeader(data []byte) header {
	return header{data: data}
}

func (h header) magicOK() bool {
	var got [magicSize]byte
	copy(got[:], h.data[magicOffset:magicOffset+magicSize])
	return got == magic
}

func (h header) initMagic() {
	copy(h.data[magicOffset:magicOffset+magicSize], magic[:])
}

func (h header) size() page.ID {
	return binary.LittleEndian.Uint64(h.data[sizeOffset : sizeOffset+8])
}

func (h header) setSize(v page.ID) {
	binary.LittleEndian.PutUint64(h.data[sizeOffset:sizeOffset+8], v)
}

func (h header) freeListID() page.ID {
	return binary.LittleEndian.Uint64(h.data[freeListIDOffset : freeListIDOffset+8])
}

func (h header) setFreeListID(v page.ID) {
	binary.LittleEndian.PutUint64(h.data[freeListIDOffset:freeListIDOffset+8], v)
}

func (h header) resizeLockWord() *uint32 {
	return wordAt(h.data, resizeLockOffset)
}

func (h header) allocLockWord() *uint32 {
	return wordAt(h.data, allocLockOffset)
}

// resetLocks clears both mutex words. Lock state never outlives the
// process that held it, so a freshly opened file must not honor
// whatever state a previous, possibly crashed, process left behind.
func (h header) resetLocks() {
	*h.resizeLockWord() = 0
	*h.allocLockWord() = 0
}
