// Package page implements the slotted page: a fixed-capacity byte
// buffer split into a small header, a slot directory that grows
// forward from the start of the body, an item arena that grows
// backward from the end of the body, and a fixed-size special area at
// the very end reserved for node metadata (node type tag, right
// sibling page number).
//
// A Page never interprets the bytes it stores. Every item is an
// opaque byte string to the page; the node package is what gives those
// bytes B-link-tree meaning.
package page

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/internal/align"
)

const (
	headerSize = 6 // upper uint16 + lower uint16 + specialSize uint16
	slotSize   = 4 // offset uint16 + size uint16, both relative to the body
)

// ErrFull is returned by InsertRawAt/AddRaw/AddItem when an item does
// not fit in the page's remaining free space. It wraps
// blterr.ErrPageFull.
var ErrFull = fmt.Errorf("page: full: %w", blterr.ErrPageFull)

// ErrSizeMismatch is returned by UpdateRaw/UpdateItem when the
// replacement item's size does not match the existing slot's size.
// In-place update never grows or shrinks a slot.
var ErrSizeMismatch = errors.New("page: update size mismatch")

// Item is the minimal serialization capability Page itself depends
// on. kv.Key and kv.Value satisfy it structurally.
type Item interface {
	Size() uint16
	Align() uintptr
	WriteTo(buf []byte)
}

// Page is a fixed-size slotted page.
type Page struct {
	buf []byte
}

// New allocates a fresh page of the given capacity with specialSize
// bytes reserved at the tail, and initializes its cursors to the empty
// state (no slots, item arena ending where the special area begins).
func New(capacity int, specialSize uint16) *Page {
	buf := align.AlignedAlloc(capacity)
	p := &Page{buf: buf}
	p.init(specialSize)
	return p
}

// Wrap adapts an existing, externally-allocated buffer (for example
// one backed by a PageFetcher's storage) into a fresh page, resetting
// its cursors to the empty state. The buffer is retained, not copied.
func Wrap(buf []byte, specialSize uint16) *Page {
	p := &Page{buf: buf}
	p.init(specialSize)
	return p
}

// Attach adapts an existing buffer whose header has already been
// initialized (for example a page being re-opened) without resetting
// its cursors.
func Attach(buf []byte) *Page {
	return &Page{buf: buf}
}

func (p *Page) init(specialSize uint16) {
	p.setUpper(0)
	p.setLower(uint16(len(p.buf) - headerSize - int(specialSize)))
	p.setSpecialSize(specialSize)
}

// Bytes returns the page's full backing buffer, header included.
func (p *Page) Bytes() []byte { return p.buf }

// Capacity returns the total size of the page in bytes, header
// included.
func (p *Page) Capacity() int { return len(p.buf) }

func (p *Page) body() []byte { return p.buf[headerSize:] }

func (p *Page) upper() uint16          { return binary.LittleEndian.Uint16(p.buf[0:2]) }
func (p *Page) setUpper(v uint16)      { binary.LittleEndian.PutUint16(p.buf[0:2], v) }
func (p *Page) lower() uint16          { return binary.LittleEndian.Uint16(p.buf[2:4]) }
func (p *Page) setLower(v uint16)      { binary.LittleEndian.PutUint16(p.buf[2:4], v) }
func (p *Page) specialSize() uint16    { return binary.LittleEndian.Uint16(p.buf[4:6]) }
func (p *Page) setSpecialSize(v uint16) { binary.LittleEndian.PutUint16(p.buf[4:6], v) }

// ItemCount returns the number of items currently stored.
func (p *Page) ItemCount() uint16 { return p.upper() / slotSize }

// SpecialSize returns the number of bytes reserved for the special
// area at the tail of the page.
func (p *Page) SpecialSize() uint16 { return p.specialSize() }

// Special returns the fixed-size special area at the tail of the page,
// reserved for node metadata. Mutating the returned slice mutates the
// page.
func (p *Page) Special() []byte {
	body := p.body()
	sz := int(p.specialSize())
	return body[len(body)-sz:]
}

func (p *Page) slotBounds(slot uint16) (offset, size uint16) {
	body := p.body()
	so := int(slot) * slotSize
	return binary.LittleEndian.Uint16(body[so : so+2]), binary.LittleEndian.Uint16(body[so+2 : so+4])
}

// ItemBytes returns the raw bytes of the item stored in the given
// slot. The returned slice aliases the page; callers must not retain
// it past a subsequent mutation of the page.
func (p *Page) ItemBytes(slot uint16) []byte {
	off, sz := p.slotBounds(slot)
	body := p.body()
	return body[off : off+sz]
}

// ItemSize returns the byte length of the item stored in the given
// slot without copying it.
func (p *Page) ItemSize(slot uint16) uint16 {
	_, sz := p.slotBounds(slot)
	return sz
}

// InsertRawAt inserts data as a new item at slot index pos, shifting
// slots [pos, ItemCount()) up by one. pos == ItemCount() appends. The
// payload is placed at an address aligned to align bytes within the
// body. Returns ErrFull if there is not enough free space between the
// slot directory and the item arena.
func (p *Page) InsertRawAt(pos uint16, data []byte, itemAlign uintptr) (uint16, error) {
	cnt := p.ItemCount()
	if pos > cnt {
		pos = cnt
	}

	upper, lower := p.upper(), p.lower()
	newUpper := upper + slotSize
	raw := int(lower) - len(data)
	if raw < 0 {
		return 0, ErrFull
	}
	newLower := uint16(align.RoundDown(uintptr(raw), itemAlign))
	if newUpper > newLower {
		return 0, ErrFull
	}

	body := p.body()
	copy(body[newLower:newLower+uint16(len(data))], data)

	srcStart := int(pos) * slotSize
	srcEnd := int(cnt) * slotSize
	copy(body[srcStart+slotSize:srcEnd+slotSize], body[srcStart:srcEnd])
	binary.LittleEndian.PutUint16(body[srcStart:srcStart+2], newLower)
	binary.LittleEndian.PutUint16(body[srcStart+2:srcStart+4], uint16(len(data)))

	p.setUpper(newUpper)
	p.setLower(newLower)
	return pos, nil
}

// AddRaw appends data as a new item at the end of the slot directory.
func (p *Page) AddRaw(data []byte, itemAlign uintptr) (uint16, error) {
	return p.InsertRawAt(p.ItemCount(), data, itemAlign)
}

// UpdateRaw overwrites the item at slot in place. The replacement must
// be exactly the same size as the existing item.
func (p *Page) UpdateRaw(slot uint16, data []byte) error {
	off, sz := p.slotBounds(slot)
	if int(sz) != len(data) {
		return ErrSizeMismatch
	}
	copy(p.body()[off:off+sz], data)
	return nil
}

// AddItem serializes item and appends it as a new slot.
func (p *Page) AddItem(item Item) (uint16, error) {
	buf := make([]byte, item.Size())
	item.WriteTo(buf)
	return p.AddRaw(buf, item.Align())
}

// UpdateItem serializes item and overwrites the slot in place. item's
// Size() must match the existing slot's size.
func (p *Page) UpdateItem(slot uint16, item Item) error {
	buf := make([]byte, item.Size())
	item.WriteTo(buf)
	return p.UpdateRaw(slot, buf)
}

// ZeroItemData resets the page to the empty state: zero items, the
// slot directory and item arena cleared, cursors reset. The special
// area is left untouched. Callers are responsible for atomically
// repopulating the page (re-adding its separator and surviving items)
// before any other goroutine can observe it through a released latch.
func (p *Page) ZeroItemData() {
	body := p.body()
	usable := len(body) - int(p.specialSize())
	for i := 0; i < usable; i++ {
		body[i] = 0
	}
	p.setUpper(0)
	p.setLower(uint16(usable))
}

// Cursor walks a page's items from both ends without overlap, the
// double-ended iteration spec.md's item layout calls for.
type Cursor struct {
	p    *Page
	n    uint16
	fwd  uint16
	back uint16
}

// Cursor returns a fresh double-ended cursor over p's items.
func (p *Page) Cursor() *Cursor {
	return &Cursor{p: p, n: p.ItemCount()}
}

// Next returns the next item in ascending slot order, or ok=false once
// the forward and backward cursors meet.
func (c *Cursor) Next() (slot uint16, data []byte, ok bool) {
	if c.fwd+c.back >= c.n {
		return 0, nil, false
	}
	slot = c.fwd
	data = c.p.ItemBytes(slot)
	c.fwd++
	return slot, data, true
}

// Prev returns the next item in descending slot order, or ok=false
// once the forward and backward cursors meet.
func (c *Cursor) Prev() (slot uint16, data []byte, ok bool) {
	if c.fwd+c.back >= c.n {
		return 0, nil, false
	}
	slot = c.n - 1 - c.back
	data = c.p.ItemBytes(slot)
	c.back++
	return slot, data, true
}
