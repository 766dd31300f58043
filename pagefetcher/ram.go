package pagefetcher

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dsnet/golib/memfile"

	"github.com/blinkdb/blinktree/internal/align"
	"github.com/blinkdb/blinktree/page"
)

// RAMFetcher is a RAM-backed Fetcher: a fixed-capacity, preallocated
// page table with one sync.RWMutex latch per slot. Each slot's bytes
// of record live in a memfile.File; Fetch{Read,Write} pull a working
// copy out through its io.ReaderAt, and a write guard's Release pushes
// the (possibly mutated) copy back through its io.WriterAt. A page
// handed out by RAMFetcher therefore round-trips through the same
// read/write surface a disk-backed file would, even though nothing
// ever touches disk. It is the reference Fetcher used by tests and by
// cmd/bltreebench; spec.md treats the buffer manager as an external,
// abstract collaborator and explicitly allows a RAM-backed stand-in
// for exercising the tree's concurrency protocol.
type RAMFetcher struct {
	pageSize int
	capacity uint32

	allocated uint32 // atomic; next free slot index

	slots []*slot
}

type slot struct {
	mu sync.RWMutex
	mf *memfile.File
}

// NewRAM constructs a RAMFetcher with room for capacity pages of
// pageSize bytes each. capacity must be large enough for the tree's
// expected working set: RAMFetcher does not grow once constructed.
func NewRAM(capacity uint32, pageSize int) *RAMFetcher {
	slots := make([]*slot, capacity)
	for i := range slots {
		slots[i] = &slot{}
	}
	return &RAMFetcher{
		pageSize: pageSize,
		capacity: capacity,
		slots:    slots,
	}
}

func (s *slot) readCopy() *page.Page {
	buf := make([]byte, len(s.mf.Bytes()))
	if _, err := s.mf.ReadAt(buf, 0); err != nil && err != io.EOF {
		panic(fmt.Sprintf("pagefetcher: reading page from memfile: %v", err))
	}
	return page.Attach(buf)
}

func (s *slot) flush(pg *page.Page) {
	if _, err := s.mf.WriteAt(pg.Bytes(), 0); err != nil {
		panic(fmt.Sprintf("pagefetcher: flushing page to memfile: %v", err))
	}
}

type readGuard struct {
	s        *slot
	pg       *page.Page
	released int32
}

func (g *readGuard) Page() *page.Page { return g.pg }
func (g *readGuard) Release() {
	if atomic.CompareAndSwapInt32(&g.released, 0, 1) {
		g.s.mu.RUnlock()
	}
}

type writeGuard struct {
	s        *slot
	pg       *page.Page
	released int32
}

func (g *writeGuard) Page() *page.Page { return g.pg }
func (g *writeGuard) Release() {
	if atomic.CompareAndSwapInt32(&g.released, 0, 1) {
		g.s.flush(g.pg)
		g.s.mu.Unlock()
	}
}

func (f *RAMFetcher) isAllocated(no PageNo) bool {
	if no >= PageNo(len(f.slots)) {
		return false
	}
	return uint32(no) < atomic.LoadUint32(&f.allocated)
}

// FetchRead implements Fetcher.
func (f *RAMFetcher) FetchRead(no PageNo) (Guard, bool) {
	if !f.isAllocated(no) {
		return nil, false
	}
	s := f.slots[no]
	s.mu.RLock()
	return &readGuard{s: s, pg: s.readCopy()}, true
}

// FetchWrite implements Fetcher.
func (f *RAMFetcher) FetchWrite(no PageNo) (Guard, bool) {
	if !f.isAllocated(no) {
		return nil, false
	}
	s := f.slots[no]
	s.mu.Lock()
	return &writeGuard{s: s, pg: s.readCopy()}, true
}

// NewPage implements Fetcher.
func (f *RAMFetcher) NewPage(specialSize uint16) (PageNo, Guard) {
	idx := atomic.AddUint32(&f.allocated, 1) - 1
	if idx >= f.capacity {
		panic("pagefetcher: RAMFetcher exhausted its preallocated page table")
	}

	buf := align.AlignedAlloc(f.pageSize)
	pg := page.Wrap(buf, specialSize)

	s := f.slots[idx]
	s.mu.Lock()
	s.mf = memfile.New(buf)
	return PageNo(idx), &writeGuard{s: s, pg: pg}
}

// Capacity returns the page table's fixed capacity.
func (f *RAMFetcher) Capacity() uint32 { return f.capacity }

// Allocated returns the number of pages allocated so far.
func (f *RAMFetcher) Allocated() uint32 { return atomic.LoadUint32(&f.allocated) }
