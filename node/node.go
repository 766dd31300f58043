// Package node gives B-link-tree meaning to the otherwise opaque
// bytes a page.Page stores: node type taxonomy (metadata, internal,
// leaf), the right-sibling link every non-metadata node carries, and
// typed accessors over a node's separator and its items.
package node

import (
	"encoding/binary"
	"fmt"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// Node type tags, stored as the first byte of a page's special area.
const (
	TypeMetadata byte = 0
	TypeInternal byte = 1
	TypeLeaf     byte = 2
)

// MetadataSpecialSize is the special-area size of the metadata page:
// just the type tag, no right-sibling link.
const MetadataSpecialSize uint16 = 1

// NodeSpecialSize is the special-area size of internal and leaf
// pages: a type tag plus an 8-byte right-sibling page number.
const NodeSpecialSize uint16 = 9

func nodeType(pg *page.Page) (byte, error) {
	sp := pg.Special()
	if len(sp) == 0 {
		return 0, fmt.Errorf("%w: empty special area", blterr.ErrCorruption)
	}
	return sp[0], nil
}

// Type returns the node type tag stored in pg's special area.
func Type(pg *page.Page) (byte, error) { return nodeType(pg) }

func rightSibling(pg *page.Page) pagefetcher.PageNo {
	sp := pg.Special()
	return pagefetcher.PageNo(binary.LittleEndian.Uint64(sp[1:9]))
}

func setRightSibling(pg *page.Page, no pagefetcher.PageNo) {
	sp := pg.Special()
	binary.LittleEndian.PutUint64(sp[1:9], uint64(no))
}
