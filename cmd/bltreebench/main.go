// Command bltreebench is a development smoke-test harness, not a
// product surface: it inserts a batch of random keys into a
// RAM-backed tree and searches them back, reporting throughput. Useful
// for eyeballing that a change did not regress gross performance; not
// a substitute for the package's test suite.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/blinkdb/blinktree"
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/pagefetcher"
)

func main() {
	n := flag.Int("n", 100000, "number of keys to insert and look up")
	pageSize := flag.Int("page-size", 8192, "page size in bytes")
	flag.Parse()

	fetcher := pagefetcher.NewRAM(uint32(*n)/4+16, *pageSize)
	tree, err := blink.New(fetcher, kv.Uint64KeyFactory{}, kv.TupleValueFactory{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "new tree:", err)
		os.Exit(1)
	}

	keys := make([]uint64, *n)
	for i := range keys {
		keys[i] = rand.Uint64()
	}

	start := time.Now()
	for i, k := range keys {
		if _, err := tree.Insert(kv.Uint64Key(k), kv.TupleValue{Page: uint32(i)}); err != nil {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}
	insertElapsed := time.Since(start)

	start = time.Now()
	miss := 0
	for _, k := range keys {
		if _, _, found, err := tree.Search(kv.Uint64Key(k)); err != nil {
			fmt.Fprintln(os.Stderr, "search:", err)
			os.Exit(1)
		} else if !found {
			miss++
		}
	}
	searchElapsed := time.Since(start)

	fmt.Printf("insert: %d keys in %s (%.0f/s)\n", *n, insertElapsed, float64(*n)/insertElapsed.Seconds())
	fmt.Printf("search: %d keys in %s (%.0f/s), %d misses\n", *n, searchElapsed, float64(*n)/searchElapsed.Seconds(), miss)
}
