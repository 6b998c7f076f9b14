package bnode

import (
	"testing"

	"mmapbtree/pkg/page"
)

func newLeafPage() []byte {
	data := make([]byte, page.Size)
	InitLeaf(data)
	return data
}

func TestLeafPutGet(t *testing.T) {
	l := newLeafPage()
	LeafPut(l, 5, 50)
	LeafPut(l, 1, 10)
	LeafPut(l, 3, 30)

	for _, tc := range []struct {
		key  uint64
		want uint64
	}{{1, 10}, {3, 30}, {5, 50}} {
		v, ok := LeafGet(l, tc.key)
		if !ok || v != tc.want {
			t.Fatalf("LeafGet(%d) = (%d, %v), want (%d, true)", tc.key, v, ok, tc.want)
		}
	}
	if Count(l) != 3 {
		t.Fatalf("Count() = %d, want 3", Count(l))
	}
}

func TestLeafPutUpdateExisting(t *testing.T) {
	l := newLeafPage()
	LeafPut(l, 1, 10)
	if inserted := LeafPut(l, 1, 20); inserted {
		t.Fatalf("LeafPut on existing key: inserted = true, want false")
	}
	v, _ := LeafGet(l, 1)
	if v != 20 {
		t.Fatalf("LeafGet(1) = %d, want 20", v)
	}
	if Count(l) != 1 {
		t.Fatalf("Count() = %d, want 1", Count(l))
	}
}

func TestLeafDelete(t *testing.T) {
	l := newLeafPage()
	LeafPut(l, 1, 10)
	LeafPut(l, 2, 20)
	LeafPut(l, 3, 30)

	prior, ok := LeafDelete(l, 2)
	if !ok || prior != 20 {
		t.Fatalf("LeafDelete(2) = (%d, %v), want (20, true)", prior, ok)
	}
	if _, ok := LeafGet(l, 2); ok {
		t.Fatalf("LeafGet(2) after delete: found = true")
	}
	if Count(l) != 2 {
		t.Fatalf("Count() = %d, want 2", Count(l))
	}
	if _, ok := LeafDelete(l, 2); ok {
		t.Fatalf("LeafDelete(2) again: found = true, want false")
	}
}

func TestLeafSplitKeepsOrderAndSeparator(t *testing.T) {
	left := newLeafPage()
	for i := uint64(0); i < 10; i++ {
		LeafPut(left, i, i*10)
	}
	right := newLeafPage()

	sep := LeafSplit(left, right, 7)
	if LeafNext(left) != 7 {
		t.Fatalf("LeafNext(left) = %d, want 7 (right's page id)", LeafNext(left))
	}
	if sep != LeafKey(right, 0) {
		t.Fatalf("separator %d != right's first key %d", sep, LeafKey(right, 0))
	}
	if Count(left)+Count(right) != 10 {
		t.Fatalf("Count(left)+Count(right) = %d, want 10", Count(left)+Count(right))
	}
	for i := 0; i < Count(left); i++ {
		if LeafKey(left, i) >= sep {
			t.Fatalf("left key %d >= separator %d", LeafKey(left, i), sep)
		}
	}
	for i := 0; i < Count(right); i++ {
		if LeafKey(right, i) < sep {
			t.Fatalf("right key %d < separator %d", LeafKey(right, i), sep)
		}
	}
}

func TestLeafMergeUndoesSplit(t *testing.T) {
	left := newLeafPage()
	for i := uint64(0); i < 20; i++ {
		LeafPut(left, i, i)
	}
	right := newLeafPage()
	LeafSplit(left, right, 9)

	LeafMerge(left, right)
	if Count(left) != 20 {
		t.Fatalf("Count(left) after merge = %d, want 20", Count(left))
	}
	for i := uint64(0); i < 20; i++ {
		v, ok := LeafGet(left, i)
		if !ok || v != i {
			t.Fatalf("LeafGet(%d) after merge = (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
}

func TestLeafBorrowFromRight(t *testing.T) {
	left := newLeafPage()
	right := newLeafPage()
	for i := uint64(0); i < 5; i++ {
		LeafPut(left, i, i)
	}
	for i := uint64(10); i < 16; i++ {
		LeafPut(right, i, i)
	}

	newSep := LeafBorrowFromRight(left, right)
	if Count(left) != 6 || Count(right) != 5 {
		t.Fatalf("counts after borrow = (%d,%d), want (6,5)", Count(left), Count(right))
	}
	if LeafKey(left, 5) != 10 {
		t.Fatalf("left's borrowed key = %d, want 10", LeafKey(left, 5))
	}
	if newSep != LeafKey(right, 0) {
		t.Fatalf("new separator %d != right's new first key %d", newSep, LeafKey(right, 0))
	}
}

func TestLeafBorrowFromLeft(t *testing.T) {
	left := newLeafPage()
	right := newLeafPage()
	for i := uint64(0); i < 6; i++ {
		LeafPut(left, i, i)
	}
	for i := uint64(10); i < 15; i++ {
		LeafPut(right, i, i)
	}

	newSep := LeafBorrowFromLeft(left, right)
	if Count(left) != 5 || Count(right) != 6 {
		t.Fatalf("counts after borrow = (%d,%d), want (5,6)", Count(left), Count(right))
	}
	if LeafKey(right, 0) != 5 {
		t.Fatalf("right's borrowed key = %d, want 5", LeafKey(right, 0))
	}
	if newSep != LeafKey(right, 0) {
		t.Fatalf("new separator %d != right's new first key %d", newSep, LeafKey(right, 0))
	}
}
