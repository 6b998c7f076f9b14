package btree

import (
	"mmapbtree/pkg/bnode"
	"mmapbtree/pkg/lock"
	"mmapbtree/pkg/page"
)

// Ascend calls fn for every key >= start in ascending order, stopping
// early if fn returns false. It crabs a chain of shared latches down to
// the starting leaf and then across the leaf chain's next pointers,
// releasing each leaf's latch only once the next leaf's is held.
func (t *Tree) Ascend(start uint64, fn func(key, value uint64) bool) {
	cur := t.rootData()
	g := lock.NewRWMutex(bnode.LatchWord(cur)).Read()

	for !bnode.IsLeaf(cur) {
		idx := bnode.InnerChildIndex(cur, start)
		childID := bnode.InnerChild(cur, idx)
		childData := t.heap.Page(childID)
		cg := lock.NewRWMutex(bnode.LatchWord(childData)).Read()

		g.Unlock()
		cur, g = childData, cg
	}

	slot, _ := bnode.LeafFind(cur, start)
	for {
		count := bnode.Count(cur)
		for slot < count {
			if !fn(bnode.LeafKey(cur, slot), bnode.LeafValue(cur, slot)) {
				g.Unlock()
				return
			}
			slot++
		}

		nextID := bnode.LeafNext(cur)
		if nextID == page.Null {
			g.Unlock()
			return
		}
		nextData := t.heap.Page(nextID)
		ng := lock.NewRWMutex(bnode.LatchWord(nextData)).Read()

		g.Unlock()
		cur, g = nextData, ng
		slot = 0
	}
}

// Count returns the total number of entries in the tree.
func (t *Tree) Count() uint64 {
	var n uint64
	t.Ascend(0, func(uint64, uint64) bool {
		n++
		return true
	})
	return n
}
