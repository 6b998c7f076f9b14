package btree

import (
	"mmapbtree/pkg/bnode"
	"mmapbtree/pkg/lock"
	"mmapbtree/pkg/page"
)

// Insert writes key=value, overwriting any existing value for key.
// Reports whether key was newly inserted (false means an existing key's
// value was updated).
func (t *Tree) Insert(key, value uint64) bool {
	return t.insert(key, value, true)
}

// TryInsert behaves like Insert but allocates through heap.TryAlloc: it
// reports false instead of panicking when a page needed for a split
// cannot be allocated because the OS refused to grow the file. The file
// still grows whenever the free list is exhausted and growth succeeds.
func (t *Tree) TryInsert(key, value uint64) bool {
	return t.insert(key, value, false)
}

func (t *Tree) insert(key, value uint64, mayGrow bool) bool {
	rootData := t.rootData()
	g := lock.NewRWMutex(bnode.LatchWord(rootData)).Write()

	if isFull(rootData) {
		if ok := t.splitRoot(rootData, mayGrow); !ok {
			g.Unlock()
			return false
		}
		rootData = t.rootData()
	}

	cur, curGuard := rootData, g
	for !bnode.IsLeaf(cur) {
		idx := bnode.InnerChildIndex(cur, key)
		childData, childGuard, ok := t.descendChild(cur, idx, key, mayGrow)
		if !ok {
			curGuard.Unlock()
			return false
		}
		curGuard.Unlock()
		cur, curGuard = childData, childGuard
	}

	inserted := bnode.LeafPut(cur, key, value)
	curGuard.Unlock()
	return inserted
}

// descendChild returns the write-latched child of parent (at children
// index idx) that key will route through, splitting it first if full.
// ok is false only when mayGrow is false and the split's page allocation
// failed (heap.TryAlloc reported that the file could not be grown).
func (t *Tree) descendChild(parent []byte, idx int, key uint64, mayGrow bool) (data []byte, guard lock.WriteGuard, ok bool) {
	childID := bnode.InnerChild(parent, idx)
	childData := t.heap.Page(childID)
	cg := lock.NewRWMutex(bnode.LatchWord(childData)).Write()

	if !isFull(childData) {
		return childData, cg, true
	}

	newID, allocated := t.alloc(mayGrow)
	if !allocated {
		cg.Unlock()
		return nil, lock.WriteGuard{}, false
	}
	newData := t.heap.Page(newID)

	var promoted uint64
	if bnode.IsLeaf(childData) {
		bnode.InitLeaf(newData)
		promoted = bnode.LeafSplit(childData, newData, newID)
	} else {
		bnode.InitInner(newData)
		promoted = bnode.InnerSplit(childData, newData)
	}
	bnode.InnerInsert(parent, idx, promoted, newID)

	if key < promoted {
		return childData, cg, true
	}
	cg.Unlock()
	ng := lock.NewRWMutex(bnode.LatchWord(newData)).Write()
	return newData, ng, true
}

// splitRoot splits a full root in place: the root's current content is
// relocated to a freshly allocated page (since PageID 1 must always
// remain the root), and page 1 is reinitialized as a one-key inner node
// over the relocated page and a new sibling.
func (t *Tree) splitRoot(rootData []byte, mayGrow bool) bool {
	oldID, ok := t.alloc(mayGrow)
	if !ok {
		return false
	}
	oldData := t.heap.Page(oldID)
	copy(oldData, rootData)
	bnode.ClearLatch(oldData)

	newID, ok := t.alloc(mayGrow)
	if !ok {
		// The relocated copy at oldID is unreachable (root still holds the
		// original content) and can simply be returned to the free list.
		t.heap.Free(oldID)
		return false
	}
	newData := t.heap.Page(newID)

	var promoted uint64
	if bnode.IsLeaf(oldData) {
		bnode.InitLeaf(newData)
		promoted = bnode.LeafSplit(oldData, newData, newID)
	} else {
		bnode.InitInner(newData)
		promoted = bnode.InnerSplit(oldData, newData)
	}

	bnode.InnerInit1(rootData, oldID, promoted, newID)
	return true
}

func (t *Tree) alloc(mayGrow bool) (page.ID, bool) {
	if mayGrow {
		return t.heap.Alloc(), true
	}
	return t.heap.TryAlloc()
}
