package bnode

import (
	"encoding/binary"

	"mmapbtree/pkg/page"
)

// Leaf body layout, starting at HeaderSize:
//
//	8..16            next leaf PageID (NULL if rightmost)
//	16..2056         keys[255]   (uint64 each)
//	2056..4096       values[255] (uint64 each)
const (
	leafNextOffset   = HeaderSize
	leafKeysOffset   = leafNextOffset + 8
	leafValuesOffset = leafKeysOffset + MaxKeys*8
)

// InitLeaf stamps data as a fresh, empty leaf.
func InitLeaf(data []byte) {
	resetLatch(data)
	SetKind(data, KindLeaf)
	SetCount(data, 0)
	SetLeafNext(data, page.Null)
}

func LeafNext(data []byte) page.ID {
	return binary.LittleEndian.Uint64(data[leafNextOffset : leafNextOffset+8])
}

func SetLeafNext(data []byte, id page.ID) {
	binary.LittleEndian.PutUint64(data[leafNextOffset:leafNextOffset+8], id)
}

func LeafKey(data []byte, i int) uint64 {
	off := leafKeysOffset + i*8
	return binary.LittleEndian.Uint64(data[off : off+8])
}

func setLeafKey(data []byte, i int, key uint64) {
	off := leafKeysOffset + i*8
	binary.LittleEndian.PutUint64(data[off:off+8], key)
}

func LeafValue(data []byte, i int) uint64 {
	off := leafValuesOffset + i*8
	return binary.LittleEndian.Uint64(data[off : off+8])
}

func setLeafValue(data []byte, i int, v uint64) {
	off := leafValuesOffset + i*8
	binary.LittleEndian.PutUint64(data[off:off+8], v)
}

// LeafFind returns the slot key belongs at (the number of existing keys
// strictly less than key) and whether the key already occupies that slot.
func LeafFind(data []byte, key uint64) (slot int, found bool) {
	count := Count(data)
	slot = lowerBound(func(i int) uint64 { return LeafKey(data, i) }, count, key)
	found = slot < count && LeafKey(data, slot) == key
	return slot, found
}

// LeafGet looks up key, returning its value and whether it was present.
func LeafGet(data []byte, key uint64) (uint64, bool) {
	slot, found := LeafFind(data, key)
	if !found {
		return 0, false
	}
	return LeafValue(data, slot), true
}

// LeafFull reports whether the leaf has no room for another key without
// splitting first.
func LeafFull(data []byte) bool {
	return Count(data) >= MaxKeys
}

// LeafPut inserts or updates key=value. The caller must ensure
// !LeafFull(data) before calling when key is not already present.
func LeafPut(data []byte, key, value uint64) (inserted bool) {
	slot, found := LeafFind(data, key)
	if found {
		setLeafValue(data, slot, value)
		return false
	}

	count := Count(data)
	for i := count; i > slot; i-- {
		setLeafKey(data, i, LeafKey(data, i-1))
		setLeafValue(data, i, LeafValue(data, i-1))
	}
	setLeafKey(data, slot, key)
	setLeafValue(data, slot, value)
	SetCount(data, count+1)
	return true
}

// LeafDelete removes key if present, returning the value it held and
// whether it was present.
func LeafDelete(data []byte, key uint64) (uint64, bool) {
	slot, found := LeafFind(data, key)
	if !found {
		return 0, false
	}
	prior := LeafValue(data, slot)
	count := Count(data)
	for i := slot; i < count-1; i++ {
		setLeafKey(data, i, LeafKey(data, i+1))
		setLeafValue(data, i, LeafValue(data, i+1))
	}
	SetCount(data, count-1)
	return prior, true
}

// LeafSplit moves the upper half of a full left leaf into right (a fresh
// empty leaf page whose PageID is rightID), splices right into the leaf
// chain between left and left's old successor, and returns the separator
// key: right's new minimum key, which the caller copies into the parent.
func LeafSplit(left, right []byte, rightID page.ID) uint64 {
	count := Count(left)
	mid := (count + 1) / 2

	for i := mid; i < count; i++ {
		setLeafKey(right, i-mid, LeafKey(left, i))
		setLeafValue(right, i-mid, LeafValue(left, i))
	}
	SetCount(right, count-mid)
	SetCount(left, mid)

	SetLeafNext(right, LeafNext(left))
	SetLeafNext(left, rightID)
	return LeafKey(right, 0)
}

// LeafBorrowFromRight moves right's first entry onto the end of left and
// returns right's new minimum key, the updated parent separator.
func LeafBorrowFromRight(left, right []byte) uint64 {
	lc := Count(left)
	setLeafKey(left, lc, LeafKey(right, 0))
	setLeafValue(left, lc, LeafValue(right, 0))
	SetCount(left, lc+1)

	rc := Count(right)
	for i := 0; i < rc-1; i++ {
		setLeafKey(right, i, LeafKey(right, i+1))
		setLeafValue(right, i, LeafValue(right, i+1))
	}
	SetCount(right, rc-1)
	return LeafKey(right, 0)
}

// LeafBorrowFromLeft moves left's last entry onto the front of right and
// returns right's new minimum key, the updated parent separator.
func LeafBorrowFromLeft(left, right []byte) uint64 {
	lc := Count(left)
	rc := Count(right)
	for i := rc; i > 0; i-- {
		setLeafKey(right, i, LeafKey(right, i-1))
		setLeafValue(right, i, LeafValue(right, i-1))
	}
	setLeafKey(right, 0, LeafKey(left, lc-1))
	setLeafValue(right, 0, LeafValue(left, lc-1))
	SetCount(right, rc+1)
	SetCount(left, lc-1)
	return LeafKey(right, 0)
}

// LeafMerge appends all of right's entries onto left and links left to
// right's next sibling. The caller frees right's page afterward.
func LeafMerge(left, right []byte) {
	lc := Count(left)
	rc := Count(right)
	for i := 0; i < rc; i++ {
		setLeafKey(left, lc+i, LeafKey(right, i))
		setLeafValue(left, lc+i, LeafValue(right, i))
	}
	SetCount(left, lc+rc)
	SetLeafNext(left, LeafNext(right))
}
