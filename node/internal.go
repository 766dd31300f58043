package node

import (
	"fmt"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// Downlink is one (key, child) pair read from an internal node.
type Downlink struct {
	Key   kv.Key
	Child pagefetcher.PageNo
}

// Internal adapts a page as an internal node: slot 0 holds the node's
// separator (a bare key, no value), slots 1..ItemCount()-1 hold
// (key, child) downlinks in ascending key order.
type Internal struct {
	pg   *page.Page
	keys kv.KeyFactory
}

// NewInternal initializes a fresh page as an empty internal node. The
// caller must call SetSeparator before the node is used.
func NewInternal(pg *page.Page, keys kv.KeyFactory) *Internal {
	sp := pg.Special()
	sp[0] = TypeInternal
	setRightSibling(pg, pagefetcher.NoPage)
	return &Internal{pg: pg, keys: keys}
}

// AsInternal adapts an existing page as an internal node, verifying
// its type tag.
func AsInternal(pg *page.Page, keys kv.KeyFactory) (*Internal, error) {
	sp := pg.Special()
	if len(sp) != int(NodeSpecialSize) {
		return nil, fmt.Errorf("%w: internal special area has %d bytes, want %d", blterr.ErrCorruption, len(sp), NodeSpecialSize)
	}
	if sp[0] != TypeInternal {
		return nil, fmt.Errorf("%w: expected internal node, got type %d", blterr.ErrCorruption, sp[0])
	}
	return &Internal{pg: pg, keys: keys}, nil
}

// RightSibling returns the node's right-sibling page number, or
// pagefetcher.NoPage if it has none.
func (n *Internal) RightSibling() pagefetcher.PageNo { return rightSibling(n.pg) }

// SetRightSibling sets the node's right-sibling page number.
func (n *Internal) SetRightSibling(no pagefetcher.PageNo) { setRightSibling(n.pg, no) }

// ItemCount returns the number of slots in use, separator included.
func (n *Internal) ItemCount() uint16 { return n.pg.ItemCount() }

// Separator returns the node's upper-bound key: every key reachable
// through this node's downlinks is < Separator().
func (n *Internal) Separator() kv.Key {
	buf := n.pg.ItemBytes(0)
	return n.keys.ReadKey(buf, uint16(len(buf)))
}

// SetSeparator sets the node's separator. Only valid on an empty node
// (ItemCount() == 0); the separator always occupies slot 0.
func (n *Internal) SetSeparator(k kv.Key) error {
	if n.pg.ItemCount() != 0 {
		return fmt.Errorf("%w: SetSeparator requires an empty internal node", blterr.ErrCorruption)
	}
	buf := make([]byte, k.Size())
	k.WriteTo(buf)
	_, err := n.pg.AddRaw(buf, k.Align())
	return err
}

func (n *Internal) downlinkAt(slot uint16) Downlink {
	k, child := decodeDownlink(n.pg.ItemBytes(slot), n.keys)
	return Downlink{Key: k, Child: child}
}

// Downlinks returns every (key, child) pair in ascending key order.
func (n *Internal) Downlinks() []Downlink {
	cnt := n.pg.ItemCount()
	out := make([]Downlink, 0, int(cnt)-1)
	for s := uint16(1); s < cnt; s++ {
		out = append(out, n.downlinkAt(s))
	}
	return out
}

// FindChild returns the child of the downlink with the smallest key
// satisfying key < downlink.Key, the move-right search rule for
// internal nodes: a key equal to a downlink's key has already been
// moved past that downlink by a split and lives under the next one
// (or off the right sibling), never under the downlink it equals. ok
// is false if no downlink covers key, meaning the caller should move
// right to this node's sibling.
func (n *Internal) FindChild(key kv.Key) (pagefetcher.PageNo, bool) {
	cnt := n.pg.ItemCount()
	for s := uint16(1); s < cnt; s++ {
		dl := n.downlinkAt(s)
		if key.CompareTo(dl.Key) < 0 {
			return dl.Child, true
		}
	}
	return pagefetcher.NoPage, false
}

// HasDownlinkTo reports whether some downlink on this node points at
// child. Used during split-propagation rescue to re-find the parent
// of a page whose ancestor stack entry is stale.
func (n *Internal) HasDownlinkTo(child pagefetcher.PageNo) bool {
	cnt := n.pg.ItemCount()
	for s := uint16(1); s < cnt; s++ {
		if n.downlinkAt(s).Child == child {
			return true
		}
	}
	return false
}

func (n *Internal) findInsertPos(key kv.Key) uint16 {
	cnt := n.pg.ItemCount()
	pos := uint16(1)
	for pos < cnt {
		if key.CompareTo(n.downlinkAt(pos).Key) <= 0 {
			break
		}
		pos++
	}
	return pos
}

// AddItem inserts a new (key, child) downlink in sorted position.
// Returns blterr.ErrKeyOutOfRange if key exceeds the node's separator,
// or page.ErrFull if the node has no room.
func (n *Internal) AddItem(key kv.Key, child pagefetcher.PageNo) error {
	if key.CompareTo(n.Separator()) > 0 {
		return blterr.ErrKeyOutOfRange
	}
	data := encodeDownlink(key, child)
	pos := n.findInsertPos(key)
	_, err := n.pg.InsertRawAt(pos, data, entryAlign(key.Align(), 8))
	return err
}

// UpdateItem rewrites the downlink key for an existing child, in
// place. If the old key equaled the node's separator and the new key
// is larger, the separator is recomputed as the maximum downlink key
// and rewritten. A smaller new key leaves the separator unchanged: the
// node still covers the old key's range, which propagate hands to the
// split-off sibling's downlink right after this call.
func (n *Internal) UpdateItem(child pagefetcher.PageNo, newKey kv.Key) error {
	cnt := n.pg.ItemCount()
	var slot uint16
	var oldKey kv.Key
	found := false
	for s := uint16(1); s < cnt; s++ {
		dl := n.downlinkAt(s)
		if dl.Child == child {
			slot, oldKey, found = s, dl.Key, true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: no downlink for child %d", blterr.ErrCorruption, child)
	}

	sep := n.Separator()
	wasSeparator := oldKey.CompareTo(sep) == 0

	if err := n.pg.UpdateRaw(slot, encodeDownlink(newKey, child)); err != nil {
		return err
	}
	if !wasSeparator || newKey.CompareTo(oldKey) < 0 {
		return nil
	}

	maxKey := newKey
	for s := uint16(1); s < cnt; s++ {
		if s == slot {
			continue
		}
		k := n.downlinkAt(s).Key
		if k.CompareTo(maxKey) > 0 {
			maxKey = k
		}
	}
	sepBuf := make([]byte, maxKey.Size())
	maxKey.WriteTo(sepBuf)
	return n.pg.UpdateRaw(0, sepBuf)
}
