package pagefetcher

import "testing"

func TestNewPageIsPage0First(t *testing.T) {
	f := NewRAM(16, 8192)
	no, guard := f.NewPage(1)
	defer guard.Release()
	if no != 0 {
		t.Fatalf("first NewPage() = %d, want 0", no)
	}
}

func TestFetchUnallocatedFails(t *testing.T) {
	f := NewRAM(16, 8192)
	if _, ok := f.FetchRead(5); ok {
		t.Fatalf("FetchRead on unallocated page succeeded")
	}
	if _, ok := f.FetchWrite(5); ok {
		t.Fatalf("FetchWrite on unallocated page succeeded")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := NewRAM(16, 8192)
	_, guard := f.NewPage(1)
	guard.Release()
	guard.Release() // must not panic or double-unlock
}

func TestConcurrentReadersThenWriter(t *testing.T) {
	f := NewRAM(16, 8192)
	no, wguard := f.NewPage(1)
	wguard.Release()

	g1, ok := f.FetchRead(no)
	if !ok {
		t.Fatal("FetchRead failed")
	}
	g2, ok := f.FetchRead(no)
	if !ok {
		t.Fatal("second concurrent FetchRead failed")
	}
	g1.Release()
	g2.Release()

	wg, ok := f.FetchWrite(no)
	if !ok {
		t.Fatal("FetchWrite after readers released failed")
	}
	wg.Release()
}

func TestPanicsWhenCapacityExhausted(t *testing.T) {
	f := NewRAM(1, 8192)
	_, g := f.NewPage(1)
	g.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when exceeding preallocated capacity")
		}
	}()
	f.NewPage(1)
}
