// Package blink implements a concurrent, page-oriented B-link tree: a
// B+tree variant where every internal and leaf node carries a
// right-sibling link, which lets a reader or writer that lands on a
// node mid-split recover by moving right instead of retrying from the
// root. Durability and page storage are delegated entirely to a
// pagefetcher.Fetcher, an abstract collaborator this package never
// looks behind.
package blink
