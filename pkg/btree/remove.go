package btree

import (
	"mmapbtree/pkg/bnode"
	"mmapbtree/pkg/lock"
	"mmapbtree/pkg/page"
)

// Remove deletes key if present, returning the value it held and
// whether it was present.
func (t *Tree) Remove(key uint64) (uint64, bool) {
	rootData := t.rootData()
	g := lock.NewRWMutex(bnode.LatchWord(rootData)).Write()

	if bnode.IsLeaf(rootData) {
		prior, removed := bnode.LeafDelete(rootData, key)
		g.Unlock()
		return prior, removed
	}

	idx := bnode.InnerChildIndex(rootData, key)
	childData, childGuard := t.ensureSafeChild(rootData, idx)

	var cur []byte
	var curGuard lock.WriteGuard
	if bnode.Count(rootData) == 0 {
		// The root's only two children merged into one: collapse a level
		// by relocating the survivor's content into the root's own page,
		// which must keep PageID 1. childGuard's page is freed below, so
		// it is discarded rather than unlocked.
		survivorID := bnode.InnerChild(rootData, 0)
		copy(rootData, childData)
		t.heap.Free(survivorID)
		cur, curGuard = rootData, g
	} else {
		g.Unlock()
		cur, curGuard = childData, childGuard
	}

	for !bnode.IsLeaf(cur) {
		idx := bnode.InnerChildIndex(cur, key)
		nextData, nextGuard := t.ensureSafeChild(cur, idx)
		curGuard.Unlock()
		cur, curGuard = nextData, nextGuard
	}

	prior, removed := bnode.LeafDelete(cur, key)
	curGuard.Unlock()
	return prior, removed
}

// ensureSafeChild write-latches parent's child at idx, rebalancing it
// first (by borrowing from a sibling, or merging with one) if it is at
// the minimum occupancy and so could underflow once a key is actually
// removed from it. The left sibling is preferred as the donor/merge
// partner; the right is tried only when the left doesn't exist or can't
// donate either. It returns a write latch on whichever page holds the
// child's subtree once safe: that is normally the child itself, but a
// merge-into-left-sibling makes the sibling the survivor instead.
func (t *Tree) ensureSafeChild(parent []byte, idx int) ([]byte, lock.WriteGuard) {
	childID := bnode.InnerChild(parent, idx)
	childData := t.heap.Page(childID)
	cg := lock.NewRWMutex(bnode.LatchWord(childData)).Write()

	if bnode.Count(childData) > bnode.MinKeys {
		return childData, cg
	}

	parentCount := bnode.Count(parent)
	hasLeft := idx > 0
	hasRight := idx < parentCount

	if hasLeft {
		leftID := bnode.InnerChild(parent, idx-1)
		leftData := t.heap.Page(leftID)
		lg := lock.NewRWMutex(bnode.LatchWord(leftData)).Write()

		if bnode.Count(leftData) > bnode.MinKeys {
			t.borrowFromLeft(parent, idx, leftData, childData)
			lg.Unlock()
			return childData, cg
		}
		if !hasRight {
			// child's page is absorbed into left and freed; cg is discarded.
			t.mergeChildren(parent, idx-1, leftData, childID, childData)
			return leftData, lg
		}
		// Left can't donate either; fall through to try the right sibling
		// first, only merging with left as a last resort below.
		lg.Unlock()
	}

	if hasRight {
		rightID := bnode.InnerChild(parent, idx+1)
		rightData := t.heap.Page(rightID)
		rg := lock.NewRWMutex(bnode.LatchWord(rightData)).Write()

		if bnode.Count(rightData) > bnode.MinKeys {
			t.borrowFromRight(parent, idx, childData, rightData)
			rg.Unlock()
			return childData, cg
		}

		if !hasLeft {
			// right's page is absorbed into child and freed; rg is discarded.
			t.mergeChildren(parent, idx, childData, rightID, rightData)
			return childData, cg
		}
		rg.Unlock()
	}

	// Neither sibling had spare entries to lend; merge with the left
	// sibling, the preferred partner.
	leftID := bnode.InnerChild(parent, idx-1)
	leftData := t.heap.Page(leftID)
	lg := lock.NewRWMutex(bnode.LatchWord(leftData)).Write()
	// child's page is absorbed into left and freed; cg is discarded.
	t.mergeChildren(parent, idx-1, leftData, childID, childData)
	return leftData, lg
}

func (t *Tree) borrowFromRight(parent []byte, idx int, left, right []byte) {
	sep := bnode.InnerKey(parent, idx)
	var newSep uint64
	if bnode.IsLeaf(left) {
		newSep = bnode.LeafBorrowFromRight(left, right)
	} else {
		_, newSep = bnode.InnerBorrowFromRight(sep, left, right)
	}
	bnode.InnerSetSeparator(parent, idx, newSep)
}

func (t *Tree) borrowFromLeft(parent []byte, idx int, left, right []byte) {
	sep := bnode.InnerKey(parent, idx-1)
	var newSep uint64
	if bnode.IsLeaf(right) {
		newSep = bnode.LeafBorrowFromLeft(left, right)
	} else {
		_, newSep = bnode.InnerBorrowFromLeft(sep, left, right)
	}
	bnode.InnerSetSeparator(parent, idx-1, newSep)
}

// mergeChildren folds right into left, removes the separator and child
// pointer at leftIdx+1 from parent, and frees rightID.
func (t *Tree) mergeChildren(parent []byte, leftIdx int, left []byte, rightID page.ID, right []byte) {
	sep := bnode.InnerKey(parent, leftIdx)
	if bnode.IsLeaf(left) {
		bnode.LeafMerge(left, right)
	} else {
		bnode.InnerMerge(sep, left, right)
	}
	bnode.InnerRemoveByChild(parent, leftIdx+1)
	t.heap.Free(rightID)
}
