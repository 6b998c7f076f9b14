// Package btree implements the mapped B+tree: a concurrent, ordered
// uint64-to-uint64 index whose nodes live in pages handed out by
// pkg/heap, and whose readers and writers coordinate through the latch
// word embedded in every node's header rather than any lock external to
// the file.
package btree

import (
	"errors"
	"fmt"
	"os"

	"mmapbtree/pkg/bnode"
	"mmapbtree/pkg/heap"
	"mmapbtree/pkg/lock"
	"mmapbtree/pkg/page"
)

// Tree is a single mapped B+tree over one heap-backed file. PageID 1 is
// always its root.
type Tree struct {
	heap *heap.Heap
}

// Open opens path, creating and initializing both the backing heap and
// an empty root leaf if the file does not already exist.
func Open(path string) (*Tree, error) {
	info, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	h, err := heap.Open(path)
	if err != nil {
		return nil, err
	}
	t := &Tree{heap: h}

	if isNew {
		if err := t.initRoot(); err != nil {
			h.Close()
			return nil, err
		}
	}
	return t, nil
}

// Initialize writes a fresh tree into f: a two-page heap whose first
// allocation becomes the root page, stamped as an empty leaf.
func Initialize(f *os.File) (*Tree, error) {
	if err := heap.Initialize(f); err != nil {
		return nil, err
	}
	h, err := heap.OpenFile(f)
	if err != nil {
		return nil, err
	}
	t := &Tree{heap: h}
	if err := t.initRoot(); err != nil {
		h.Close()
		return nil, err
	}
	return t, nil
}

// OpenFile opens an existing tree over f. The root page must already
// exist; initializing a fresh file is Initialize's job.
func OpenFile(f *os.File) (*Tree, error) {
	h, err := heap.OpenFile(f)
	if err != nil {
		return nil, err
	}
	if h.Page(page.Root) == nil {
		h.Close()
		return nil, fmt.Errorf("btree: file has no root page")
	}
	return &Tree{heap: h}, nil
}

// initRoot allocates the root page and stamps it as an empty leaf. It
// relies on a fresh two-page heap always handing back PageID 1 as its
// very first allocation, since the lone free-list page installed by
// heap.Initialize consumes itself.
func (t *Tree) initRoot() error {
	id := t.heap.Alloc()
	if id != page.Root {
		return fmt.Errorf("btree: expected a fresh heap's first allocation to be the root page, got %d", id)
	}
	bnode.InitLeaf(t.heap.Page(page.Root))
	return nil
}

// Close closes the underlying heap file.
func (t *Tree) Close() error {
	return t.heap.Close()
}

func (t *Tree) rootData() []byte {
	return t.heap.Page(page.Root)
}

func isFull(data []byte) bool {
	if bnode.IsLeaf(data) {
		return bnode.LeafFull(data)
	}
	return bnode.InnerFull(data)
}

// Get looks up key, crabbing a chain of shared latches from the root down
// to the leaf that would hold it.
func (t *Tree) Get(key uint64) (uint64, bool) {
	cur := t.rootData()
	mu := lock.NewRWMutex(bnode.LatchWord(cur))
	g := mu.Read()

	for !bnode.IsLeaf(cur) {
		idx := bnode.InnerChildIndex(cur, key)
		childID := bnode.InnerChild(cur, idx)
		childData := t.heap.Page(childID)
		childMu := lock.NewRWMutex(bnode.LatchWord(childData))
		cg := childMu.Read()

		g.Unlock()
		cur, g = childData, cg
	}

	v, ok := bnode.LeafGet(cur, key)
	g.Unlock()
	return v, ok
}
