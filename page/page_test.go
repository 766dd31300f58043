package page

import (
	"bytes"
	"testing"
)

func TestAddItemAndRead(t *testing.T) {
	p := New(512, 9)
	s0, err := p.AddRaw([]byte("hello"), 1)
	if err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	s1, err := p.AddRaw([]byte("world!"), 1)
	if err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	if s0 != 0 || s1 != 1 {
		t.Fatalf("slot indices = %d,%d, want 0,1", s0, s1)
	}
	if p.ItemCount() != 2 {
		t.Fatalf("ItemCount() = %d, want 2", p.ItemCount())
	}
	if !bytes.Equal(p.ItemBytes(0), []byte("hello")) {
		t.Fatalf("slot 0 = %q", p.ItemBytes(0))
	}
	if !bytes.Equal(p.ItemBytes(1), []byte("world!")) {
		t.Fatalf("slot 1 = %q", p.ItemBytes(1))
	}
}

func TestInsertRawAtOrdersSlots(t *testing.T) {
	p := New(512, 9)
	mustAdd := func(pos uint16, s string) {
		if _, err := p.InsertRawAt(pos, []byte(s), 1); err != nil {
			t.Fatalf("InsertRawAt(%d, %q): %v", pos, s, err)
		}
	}
	mustAdd(0, "b")
	mustAdd(1, "d")
	mustAdd(1, "c") // insert between b and d
	mustAdd(0, "a") // insert before everything

	want := []string{"a", "b", "c", "d"}
	for i, w := range want {
		if got := string(p.ItemBytes(uint16(i))); got != w {
			t.Fatalf("slot %d = %q, want %q", i, got, w)
		}
	}
}

func TestUpdateRawRequiresSameSize(t *testing.T) {
	p := New(512, 9)
	p.AddRaw([]byte("abcd"), 1)
	if err := p.UpdateRaw(0, []byte("wxyz")); err != nil {
		t.Fatalf("same-size update failed: %v", err)
	}
	if !bytes.Equal(p.ItemBytes(0), []byte("wxyz")) {
		t.Fatalf("update did not take effect: %q", p.ItemBytes(0))
	}
	if err := p.UpdateRaw(0, []byte("too-long")); err != ErrSizeMismatch {
		t.Fatalf("UpdateRaw with mismatched size = %v, want ErrSizeMismatch", err)
	}
}

func TestAddRawReturnsFullWhenOutOfSpace(t *testing.T) {
	p := New(64, 9)
	var err error
	for i := 0; i < 100; i++ {
		_, err = p.AddRaw([]byte("0123456789"), 1)
		if err != nil {
			break
		}
	}
	if err != ErrFull {
		t.Fatalf("expected ErrFull eventually, got %v", err)
	}
}

func TestSpecialAreaSurvivesZeroItemData(t *testing.T) {
	p := New(512, 9)
	special := p.Special()
	copy(special, []byte("123456789"))

	p.AddRaw([]byte("x"), 1)
	p.AddRaw([]byte("y"), 1)
	p.ZeroItemData()

	if p.ItemCount() != 0 {
		t.Fatalf("ItemCount() after zero = %d, want 0", p.ItemCount())
	}
	if !bytes.Equal(p.Special(), []byte("123456789")) {
		t.Fatalf("special area not preserved: %q", p.Special())
	}
}

func TestCursorIsDoubleEnded(t *testing.T) {
	p := New(512, 9)
	for _, s := range []string{"a", "b", "c", "d"} {
		p.AddRaw([]byte(s), 1)
	}

	c := p.Cursor()
	_, first, ok := c.Next()
	if !ok || string(first) != "a" {
		t.Fatalf("Next() = %q, %v, want a, true", first, ok)
	}
	_, last, ok := c.Prev()
	if !ok || string(last) != "d" {
		t.Fatalf("Prev() = %q, %v, want d, true", last, ok)
	}
	_, second, ok := c.Next()
	if !ok || string(second) != "b" {
		t.Fatalf("Next() = %q, %v, want b, true", second, ok)
	}
	_, third, ok := c.Prev()
	if !ok || string(third) != "c" {
		t.Fatalf("Prev() = %q, %v, want c, true", third, ok)
	}
	if _, _, ok := c.Next(); ok {
		t.Fatalf("cursor should be exhausted")
	}
	if _, _, ok := c.Prev(); ok {
		t.Fatalf("cursor should be exhausted")
	}
}

func TestAlignmentOfItemPlacement(t *testing.T) {
	p := New(512, 9)
	p.AddRaw([]byte("x"), 1) // 1-byte item, forces a misaligned lower cursor
	slot, err := p.AddRaw([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	if err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	off, _ := p.slotBounds(slot)
	if off%8 != 0 {
		t.Fatalf("8-byte-aligned item placed at unaligned offset %d", off)
	}
}
