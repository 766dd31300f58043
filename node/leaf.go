package node

import (
	"fmt"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// Entry is one (key, value) pair read from a leaf node.
type Entry struct {
	Key   kv.Key
	Value kv.Value
}

// Leaf adapts a page as a leaf node: slot 0 holds the node's
// separator (a bare key), slots 1..ItemCount()-1 hold (key, value)
// entries in ascending key order.
type Leaf struct {
	pg     *page.Page
	keys   kv.KeyFactory
	values kv.ValueFactory
}

// NewLeaf initializes a fresh page as an empty leaf node. The caller
// must call SetSeparator before the node is used.
func NewLeaf(pg *page.Page, keys kv.KeyFactory, values kv.ValueFactory) *Leaf {
	sp := pg.Special()
	sp[0] = TypeLeaf
	setRightSibling(pg, pagefetcher.NoPage)
	return &Leaf{pg: pg, keys: keys, values: values}
}

// AsLeaf adapts an existing page as a leaf node, verifying its type
// tag.
func AsLeaf(pg *page.Page, keys kv.KeyFactory, values kv.ValueFactory) (*Leaf, error) {
	sp := pg.Special()
	if len(sp) != int(NodeSpecialSize) {
		return nil, fmt.Errorf("%w: leaf special area has %d bytes, want %d", blterr.ErrCorruption, len(sp), NodeSpecialSize)
	}
	if sp[0] != TypeLeaf {
		return nil, fmt.Errorf("%w: expected leaf node, got type %d", blterr.ErrCorruption, sp[0])
	}
	return &Leaf{pg: pg, keys: keys, values: values}, nil
}

// RightSibling returns the node's right-sibling page number, or
// pagefetcher.NoPage if it has none.
func (l *Leaf) RightSibling() pagefetcher.PageNo { return rightSibling(l.pg) }

// SetRightSibling sets the node's right-sibling page number.
func (l *Leaf) SetRightSibling(no pagefetcher.PageNo) { setRightSibling(l.pg, no) }

// ItemCount returns the number of slots in use, separator included.
func (l *Leaf) ItemCount() uint16 { return l.pg.ItemCount() }

// Separator returns the node's upper-bound key: every key stored on
// this node is <= Separator().
func (l *Leaf) Separator() kv.Key {
	buf := l.pg.ItemBytes(0)
	return l.keys.ReadKey(buf, uint16(len(buf)))
}

// SetSeparator sets the node's separator. Only valid on an empty node
// (ItemCount() == 0); the separator always occupies slot 0.
func (l *Leaf) SetSeparator(k kv.Key) error {
	if l.pg.ItemCount() != 0 {
		return fmt.Errorf("%w: SetSeparator requires an empty leaf node", blterr.ErrCorruption)
	}
	buf := make([]byte, k.Size())
	k.WriteTo(buf)
	_, err := l.pg.AddRaw(buf, k.Align())
	return err
}

// EntryAt decodes the (key, value) pair at slot. slot 0 is the
// separator, not an entry; callers iterate 1..ItemCount().
func (l *Leaf) EntryAt(slot uint16) Entry {
	k, v := decodeLeafEntry(l.pg.ItemBytes(slot), l.keys, l.values)
	return Entry{Key: k, Value: v}
}

// KeyAt decodes only the key portion of the entry at slot, without
// constructing the value.
func (l *Leaf) KeyAt(slot uint16) kv.Key { return l.EntryAt(slot).Key }

// ItemSize returns the raw encoded byte length of the entry at slot.
func (l *Leaf) ItemSize(slot uint16) uint16 { return l.pg.ItemSize(slot) }

// Entries returns every (key, value) pair in ascending key order.
func (l *Leaf) Entries() []Entry {
	cnt := l.pg.ItemCount()
	out := make([]Entry, 0, int(cnt)-1)
	for s := uint16(1); s < cnt; s++ {
		out = append(out, l.EntryAt(s))
	}
	return out
}

// Find returns the value stored under key, if any.
func (l *Leaf) Find(key kv.Key) (kv.Value, bool) {
	cnt := l.pg.ItemCount()
	for s := uint16(1); s < cnt; s++ {
		e := l.EntryAt(s)
		if key.CompareTo(e.Key) == 0 {
			return e.Value, true
		}
	}
	return nil, false
}

func (l *Leaf) findInsertPos(key kv.Key) uint16 {
	cnt := l.pg.ItemCount()
	pos := uint16(1)
	for pos < cnt {
		if key.CompareTo(l.EntryAt(pos).Key) <= 0 {
			break
		}
		pos++
	}
	return pos
}

// AddItem inserts a new (key, value) entry in sorted position.
// Returns blterr.ErrKeyOutOfRange if key exceeds the node's
// separator, or page.ErrFull if the node has no room.
func (l *Leaf) AddItem(key kv.Key, value kv.Value) error {
	if key.CompareTo(l.Separator()) > 0 {
		return blterr.ErrKeyOutOfRange
	}
	data := encodeLeafEntry(key, value)
	pos := l.findInsertPos(key)
	_, err := l.pg.InsertRawAt(pos, data, entryAlign(key.Align(), value.Align()))
	return err
}
