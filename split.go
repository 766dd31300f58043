package blink

import (
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/node"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// splitLeaf moves the upper half of old's entries, by cumulative byte
// size, onto the freshly-allocated rightPg. Because node.Leaf.AddItem
// always inserts in sorted position, old's items are already in key
// order: no sort is needed before walking them to find the split
// point. old is rebuilt in place via ZeroItemData with a smaller
// separator; rightPg is populated with old's previous separator and
// previous right sibling.
func splitLeaf(oldPg *page.Page, keys kv.KeyFactory, values kv.ValueFactory, rightPg *page.Page, rightNo pagefetcher.PageNo) error {
	old, err := node.AsLeaf(oldPg, keys, values)
	if err != nil {
		return err
	}

	cnt := old.ItemCount()
	oldSeparator := old.Separator()
	oldRight := old.RightSibling()

	var total uint32
	sizes := make([]uint16, cnt)
	for s := uint16(1); s < cnt; s++ {
		sizes[s] = old.ItemSize(s)
		total += uint32(sizes[s])
	}
	half := total / 2

	var cum uint32
	splitAt := cnt
	for s := uint16(1); s < cnt; s++ {
		cum += uint32(sizes[s])
		if cum > half {
			splitAt = s
			break
		}
	}
	if splitAt >= cnt {
		splitAt = cnt - 1
	}

	newSeparator := old.KeyAt(splitAt)

	moved := make([]node.Entry, 0, int(cnt-splitAt))
	for s := splitAt; s < cnt; s++ {
		moved = append(moved, old.EntryAt(s))
	}
	kept := make([]node.Entry, 0, int(splitAt-1))
	for s := uint16(1); s < splitAt; s++ {
		kept = append(kept, old.EntryAt(s))
	}

	right := node.NewLeaf(rightPg, keys, values)
	right.SetRightSibling(oldRight)
	if err := right.SetSeparator(oldSeparator); err != nil {
		return err
	}
	for _, e := range moved {
		if err := right.AddItem(e.Key, e.Value); err != nil {
			return err
		}
	}

	oldPg.ZeroItemData()
	rebuilt := node.NewLeaf(oldPg, keys, values)
	if err := rebuilt.SetSeparator(newSeparator); err != nil {
		return err
	}
	for _, e := range kept {
		if err := rebuilt.AddItem(e.Key, e.Value); err != nil {
			return err
		}
	}
	rebuilt.SetRightSibling(rightNo)

	return nil
}

// splitInternal is splitLeaf's counterpart for internal nodes: moves
// the upper half of old's downlinks, by cumulative byte size, onto
// rightPg.
func splitInternal(oldPg *page.Page, keys kv.KeyFactory, rightPg *page.Page, rightNo pagefetcher.PageNo) error {
	old, err := node.AsInternal(oldPg, keys)
	if err != nil {
		return err
	}

	cnt := old.ItemCount()
	oldSeparator := old.Separator()
	oldRight := old.RightSibling()

	dls := old.Downlinks() // already in key order; index i corresponds to slot i+1

	var total uint32
	sizes := make([]uint16, cnt)
	for s := uint16(1); s < cnt; s++ {
		sizes[s] = oldPg.ItemSize(s)
		total += uint32(sizes[s])
	}
	half := total / 2

	var cum uint32
	splitAt := cnt
	for s := uint16(1); s < cnt; s++ {
		cum += uint32(sizes[s])
		if cum > half {
			splitAt = s
			break
		}
	}
	if splitAt >= cnt {
		splitAt = cnt - 1
	}

	newSeparator := dls[splitAt-1].Key

	moved := dls[splitAt-1:]
	kept := dls[:splitAt-1]

	right := node.NewInternal(rightPg, keys)
	right.SetRightSibling(oldRight)
	if err := right.SetSeparator(oldSeparator); err != nil {
		return err
	}
	for _, dl := range moved {
		if err := right.AddItem(dl.Key, dl.Child); err != nil {
			return err
		}
	}

	oldPg.ZeroItemData()
	rebuilt := node.NewInternal(oldPg, keys)
	if err := rebuilt.SetSeparator(newSeparator); err != nil {
		return err
	}
	for _, dl := range kept {
		if err := rebuilt.AddItem(dl.Key, dl.Child); err != nil {
			return err
		}
	}
	rebuilt.SetRightSibling(rightNo)

	return nil
}
