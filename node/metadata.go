package node

import (
	"encoding/binary"
	"fmt"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// Metadata is the tree's single metadata node, always page 0. It
// holds at most one item: the current root's page number. An empty
// metadata node means the tree has no root yet.
type Metadata struct {
	pg *page.Page
}

// NewMetadata initializes a fresh page as an empty metadata node.
func NewMetadata(pg *page.Page) *Metadata {
	pg.Special()[0] = TypeMetadata
	return &Metadata{pg: pg}
}

// AsMetadata adapts an existing page as a metadata node, verifying its
// type tag.
func AsMetadata(pg *page.Page) (*Metadata, error) {
	sp := pg.Special()
	if len(sp) != int(MetadataSpecialSize) {
		return nil, fmt.Errorf("%w: metadata special area has %d bytes, want %d", blterr.ErrCorruption, len(sp), MetadataSpecialSize)
	}
	if sp[0] != TypeMetadata {
		return nil, fmt.Errorf("%w: expected metadata node, got type %d", blterr.ErrCorruption, sp[0])
	}
	return &Metadata{pg: pg}, nil
}

// RootNo returns the current root page number. has is false if no
// root has been materialized yet.
func (m *Metadata) RootNo() (no pagefetcher.PageNo, has bool, err error) {
	switch m.pg.ItemCount() {
	case 0:
		return 0, false, nil
	case 1:
		buf := m.pg.ItemBytes(0)
		return pagefetcher.PageNo(binary.LittleEndian.Uint64(buf)), true, nil
	default:
		return 0, false, fmt.Errorf("%w: metadata page holds %d items, want 0 or 1", blterr.ErrCorruption, m.pg.ItemCount())
	}
}

// SetRootNo records the current root page number, creating the item
// on first use and overwriting it thereafter.
func (m *Metadata) SetRootNo(no pagefetcher.PageNo) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(no))
	if m.pg.ItemCount() == 0 {
		_, err := m.pg.AddRaw(buf, 8)
		return err
	}
	return m.pg.UpdateRaw(0, buf)
}
