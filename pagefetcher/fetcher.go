// Package pagefetcher defines the abstract PageFetcher contract the
// tree is built against: a source of latched pages identified by a
// monotonically assigned page number. The tree never knows how a
// Fetcher stores its pages, only that FetchRead/FetchWrite/NewPage
// hand back a latched page and a guard that must be released exactly
// once.
package pagefetcher

import "github.com/blinkdb/blinktree/page"

// PageNo identifies a page. Page 0 is always the metadata page.
type PageNo uint64

// NoPage is the zero value, used as a "no such page" sentinel in
// right-sibling and downlink fields.
const NoPage PageNo = 0

// Guard releases a latch acquired by Fetcher. Release is idempotent:
// calling it more than once has no effect beyond the first call.
type Guard interface {
	Page() *page.Page
	Release()
}

// Fetcher is the abstract source of pages a Tree is built against.
// Implementations are responsible for page storage, page number
// assignment, and per-page latching; the tree never reaches through
// this interface to learn how pages are persisted.
type Fetcher interface {
	// FetchRead latches no for shared (read) access. ok is false if
	// no has never been allocated.
	FetchRead(no PageNo) (guard Guard, ok bool)
	// FetchWrite latches no for exclusive (write) access. ok is false
	// if no has never been allocated.
	FetchWrite(no PageNo) (guard Guard, ok bool)
	// NewPage allocates a fresh page with specialSize bytes reserved
	// at its tail, returns its number, and hands back the page
	// already latched for exclusive access.
	NewPage(specialSize uint16) (PageNo, Guard)
}
