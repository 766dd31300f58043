package node

import (
	"testing"

	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

func newNodePage(special uint16) *page.Page {
	return page.New(4096, special)
}

func TestMetadataEmptyThenSet(t *testing.T) {
	m := NewMetadata(newNodePage(MetadataSpecialSize))
	_, has, err := m.RootNo()
	if err != nil {
		t.Fatalf("RootNo: %v", err)
	}
	if has {
		t.Fatalf("fresh metadata reports a root")
	}
	if err := m.SetRootNo(42); err != nil {
		t.Fatalf("SetRootNo: %v", err)
	}
	no, has, err := m.RootNo()
	if err != nil || !has || no != 42 {
		t.Fatalf("RootNo() = %d,%v,%v, want 42,true,nil", no, has, err)
	}
	if err := m.SetRootNo(99); err != nil {
		t.Fatalf("SetRootNo overwrite: %v", err)
	}
	no, _, _ = m.RootNo()
	if no != 99 {
		t.Fatalf("RootNo() after overwrite = %d, want 99", no)
	}
}

func TestAsMetadataRejectsWrongType(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	NewInternal(pg, kv.Uint64KeyFactory{})
	if _, err := AsMetadata(pg); err == nil {
		t.Fatalf("AsMetadata accepted an internal page")
	}
}

func TestInternalSeparatorAndDownlinks(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	in := NewInternal(pg, kv.Uint64KeyFactory{})
	if err := in.SetSeparator(kv.Uint64KeyFactory{}.MaxKey()); err != nil {
		t.Fatalf("SetSeparator: %v", err)
	}

	if err := in.AddItem(kv.Uint64Key(10), pagefetcher.PageNo(1)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := in.AddItem(kv.Uint64Key(30), pagefetcher.PageNo(3)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := in.AddItem(kv.Uint64Key(20), pagefetcher.PageNo(2)); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	dls := in.Downlinks()
	wantKeys := []uint64{10, 20, 30}
	if len(dls) != 3 {
		t.Fatalf("Downlinks() has %d entries, want 3", len(dls))
	}
	for i, w := range wantKeys {
		if uint64(dls[i].Key.(kv.Uint64Key)) != w {
			t.Fatalf("Downlinks()[%d].Key = %v, want %d", i, dls[i].Key, w)
		}
	}

	child, ok := in.FindChild(kv.Uint64Key(15))
	if !ok || child != 2 {
		t.Fatalf("FindChild(15) = %d,%v, want 2,true", child, ok)
	}

	if !in.HasDownlinkTo(2) {
		t.Fatalf("HasDownlinkTo(2) = false")
	}
	if in.HasDownlinkTo(99) {
		t.Fatalf("HasDownlinkTo(99) = true")
	}
}

func TestInternalAddItemRejectsKeyOutOfRange(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	in := NewInternal(pg, kv.Uint64KeyFactory{})
	if err := in.SetSeparator(kv.Uint64Key(100)); err != nil {
		t.Fatalf("SetSeparator: %v", err)
	}
	err := in.AddItem(kv.Uint64Key(200), pagefetcher.PageNo(1))
	if err == nil {
		t.Fatalf("AddItem accepted a key exceeding the separator")
	}
}

func TestInternalUpdateItemRefreshesSeparator(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	in := NewInternal(pg, kv.Uint64KeyFactory{})
	// Give the node a separator equal to its largest downlink key, so
	// raising that downlink's key actually exercises the refresh path.
	in.SetSeparator(kv.Uint64Key(30))
	in.AddItem(kv.Uint64Key(10), pagefetcher.PageNo(1))
	in.AddItem(kv.Uint64Key(30), pagefetcher.PageNo(3)) // this key equals the separator

	if err := in.UpdateItem(3, kv.Uint64Key(50)); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	sep := in.Separator()
	if uint64(sep.(kv.Uint64Key)) != 50 {
		t.Fatalf("Separator() = %v after updating the separator downlink, want 50", sep)
	}
}

func TestLeafAddFindAndSeparatorBound(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	l := NewLeaf(pg, kv.Uint64KeyFactory{}, kv.TupleValueFactory{})
	if err := l.SetSeparator(kv.Uint64Key(1000)); err != nil {
		t.Fatalf("SetSeparator: %v", err)
	}

	val := kv.TupleValue{Page: 7, Offset: 3}
	if err := l.AddItem(kv.Uint64Key(5), val); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	got, ok := l.Find(kv.Uint64Key(5))
	if !ok || got.CompareTo(val) != 0 {
		t.Fatalf("Find(5) = %v,%v, want %v,true", got, ok, val)
	}
	if _, ok := l.Find(kv.Uint64Key(6)); ok {
		t.Fatalf("Find(6) unexpectedly found a value")
	}

	if err := l.AddItem(kv.Uint64Key(2000), val); err == nil {
		t.Fatalf("AddItem accepted a key exceeding the separator")
	}
}

func TestLeafEntriesStaySortedOnInsert(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	l := NewLeaf(pg, kv.Uint64KeyFactory{}, kv.TupleValueFactory{})
	l.SetSeparator(kv.Uint64KeyFactory{}.MaxKey())

	for _, k := range []uint64{50, 10, 40, 20, 30} {
		if err := l.AddItem(kv.Uint64Key(k), kv.TupleValue{Page: uint32(k)}); err != nil {
			t.Fatalf("AddItem(%d): %v", k, err)
		}
	}

	entries := l.Entries()
	want := []uint64{10, 20, 30, 40, 50}
	if len(entries) != len(want) {
		t.Fatalf("Entries() has %d items, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if uint64(entries[i].Key.(kv.Uint64Key)) != w {
			t.Fatalf("Entries()[%d].Key = %v, want %d", i, entries[i].Key, w)
		}
	}
}

// TestLeafDynamicItemSizeMatchesReference reproduces the byte layout
// of a leaf entry built from a 1-byte dynamic key and an 8-byte padded
// fixed value: 1 byte of key, 3 bytes of padding up to the value's
// 4-byte alignment, 8 bytes of value, and a 6-byte trailer, for a
// total of 18 bytes.
func TestLeafDynamicItemSizeMatchesReference(t *testing.T) {
	pg := newNodePage(NodeSpecialSize)
	l := NewLeaf(pg, kv.ByteKeyFactory{}, kv.TupleValueFactory{})
	l.SetSeparator(kv.ByteKeyFactory{}.MaxKey())

	key := kv.ByteKey(0x22)
	val := kv.TupleValue{Page: 0xFCFDFEFF, Offset: 0x0016}
	if err := l.AddItem(key, val); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if got := l.ItemSize(1); got != 18 {
		t.Fatalf("encoded entry size = %d, want 18", got)
	}

	got, ok := l.Find(key)
	if !ok || got.CompareTo(val) != 0 {
		t.Fatalf("Find(0x22) = %v,%v, want %v,true", got, ok, val)
	}
}
