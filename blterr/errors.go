// Package blterr defines the sentinel errors returned across the page,
// node, and tree layers, so callers can classify failures with
// errors.Is instead of string matching.
package blterr

import "errors"

var (
	// ErrPageFull is returned when an item does not fit in the
	// remaining free space of a page.
	ErrPageFull = errors.New("blink: page full")

	// ErrKeyOutOfRange is returned when a key compares greater than a
	// node's separator and therefore does not belong on that node.
	ErrKeyOutOfRange = errors.New("blink: key out of range for node")

	// ErrNotAllocated is returned when a PageFetcher is asked for a
	// page number that has never been allocated.
	ErrNotAllocated = errors.New("blink: page not allocated")

	// ErrCorruption is returned when on-page structure fails an
	// invariant check: an unexpected node type tag, a malformed
	// special area, a dead-end traversal with no covering downlink
	// and no right sibling.
	ErrCorruption = errors.New("blink: corrupt page structure")
)
