package blink

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/blinkdb/blinktree/blterr"
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/node"
	"github.com/blinkdb/blinktree/page"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// MetadataPageNo is the fixed page number of the tree's metadata
// node. A Fetcher handed to New must allocate page 0 first, and
// nothing else.
const MetadataPageNo = pagefetcher.PageNo(0)

// Tree is a concurrent B-link tree over a pagefetcher.Fetcher. The
// zero value is not usable; construct with New.
type Tree struct {
	fetcher pagefetcher.Fetcher
	keys    kv.KeyFactory
	values  kv.ValueFactory
	log     *logrus.Entry
}

// New constructs a Tree over fetcher, allocating and initializing the
// metadata page. fetcher must be fresh: if the page it allocates is not
// page 0, New returns an error wrapping blterr.ErrCorruption. keys and
// values describe the
// concrete key and value types the tree will store; every Key/Value
// passed to Search/Insert must be produced by, and compatible with,
// these factories.
func New(fetcher pagefetcher.Fetcher, keys kv.KeyFactory, values kv.ValueFactory, opts ...Option) (*Tree, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	t := &Tree{
		fetcher: fetcher,
		keys:    keys,
		values:  values,
		log:     o.logger.WithField("component", "blink"),
	}

	no, guard := fetcher.NewPage(node.MetadataSpecialSize)
	if no != MetadataPageNo {
		guard.Release()
		return nil, fmt.Errorf("%w: metadata page must be page 0, got %d", blterr.ErrCorruption, no)
	}
	node.NewMetadata(guard.Page())
	guard.Release()
	return t, nil
}

// Preload eagerly materializes the root leaf, so the first Insert does
// not pay for it (Search never creates a root). Safe to call more than once or
// concurrently; materializeRoot is idempotent.
func (t *Tree) Preload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.materializeRoot()
}

func (t *Tree) rootNo() (pagefetcher.PageNo, bool, error) {
	guard, ok := t.fetcher.FetchRead(MetadataPageNo)
	if !ok {
		return 0, false, fmt.Errorf("%w: metadata page missing", blterr.ErrNotAllocated)
	}
	defer guard.Release()
	meta, err := node.AsMetadata(guard.Page())
	if err != nil {
		return 0, false, err
	}
	return meta.RootNo()
}

// materializeRoot ensures the tree has a root, creating an empty leaf
// and recording it in the metadata page if none exists yet. Safe
// under concurrent callers: the metadata page's write latch makes the
// check-then-create atomic.
func (t *Tree) materializeRoot() error {
	if _, has, err := t.rootNo(); err != nil {
		return err
	} else if has {
		return nil
	}

	mguard, ok := t.fetcher.FetchWrite(MetadataPageNo)
	if !ok {
		return fmt.Errorf("%w: metadata page missing", blterr.ErrNotAllocated)
	}
	defer mguard.Release()

	meta, err := node.AsMetadata(mguard.Page())
	if err != nil {
		return err
	}
	if _, has, err := meta.RootNo(); err != nil {
		return err
	} else if has {
		return nil
	}

	rootNo, rguard := t.fetcher.NewPage(node.NodeSpecialSize)
	leaf := node.NewLeaf(rguard.Page(), t.keys, t.values)
	if err := leaf.SetSeparator(t.keys.MaxKey()); err != nil {
		rguard.Release()
		return err
	}
	rguard.Release()

	if err := meta.SetRootNo(rootNo); err != nil {
		return err
	}
	t.log.WithField("root", rootNo).Debug("materialized root leaf")
	return nil
}

func nodeTypeOf(pg *page.Page) (byte, error) { return node.Type(pg) }

// Search looks up key, performing lock-coupled, move-right-tolerant
// descent from the root. found is false if no root exists yet or the
// key is absent. leafNo identifies the leaf page the search landed
// on, useful for diagnostics.
func (t *Tree) Search(key kv.Key) (leafNo pagefetcher.PageNo, value kv.Value, found bool, err error) {
	rootNo, has, err := t.rootNo()
	if err != nil || !has {
		return 0, nil, false, err
	}

	guard, ok := t.fetcher.FetchRead(rootNo)
	if !ok {
		return 0, nil, false, fmt.Errorf("%w: root page %d", blterr.ErrNotAllocated, rootNo)
	}
	cur := rootNo

	for {
		typ, err := nodeTypeOf(guard.Page())
		if err != nil {
			guard.Release()
			return 0, nil, false, err
		}

		switch typ {
		case node.TypeInternal:
			in, err := node.AsInternal(guard.Page(), t.keys)
			if err != nil {
				guard.Release()
				return 0, nil, false, err
			}
			if child, ok := in.FindChild(key); ok {
				guard.Release()
				nextGuard, ok2 := t.fetcher.FetchRead(child)
				if !ok2 {
					return 0, nil, false, fmt.Errorf("%w: page %d", blterr.ErrNotAllocated, child)
				}
				guard, cur = nextGuard, child
				continue
			}
			right := in.RightSibling()
			if right == pagefetcher.NoPage {
				guard.Release()
				return 0, nil, false, fmt.Errorf("%w: dead end at internal page %d", blterr.ErrCorruption, cur)
			}
			nextGuard, ok2 := t.fetcher.FetchRead(right)
			guard.Release()
			if !ok2 {
				return 0, nil, false, fmt.Errorf("%w: sibling %d", blterr.ErrNotAllocated, right)
			}
			guard, cur = nextGuard, right

		case node.TypeLeaf:
			leaf, err := node.AsLeaf(guard.Page(), t.keys, t.values)
			if err != nil {
				guard.Release()
				return 0, nil, false, err
			}
			if key.CompareTo(leaf.Separator()) < 0 {
				v, found := leaf.Find(key)
				leafNo := cur
				guard.Release()
				return leafNo, v, found, nil
			}
			right := leaf.RightSibling()
			if right == pagefetcher.NoPage {
				leafNo := cur
				guard.Release()
				return leafNo, nil, false, nil
			}
			nextGuard, ok2 := t.fetcher.FetchRead(right)
			guard.Release()
			if !ok2 {
				return 0, nil, false, fmt.Errorf("%w: sibling %d", blterr.ErrNotAllocated, right)
			}
			guard, cur = nextGuard, right

		default:
			guard.Release()
			return 0, nil, false, fmt.Errorf("%w: unexpected node type %d at page %d", blterr.ErrCorruption, typ, cur)
		}
	}
}

// Insert places (key, value), splitting leaves and internal nodes and
// growing the root as needed. Returns the page the entry ultimately
// landed on.
func (t *Tree) Insert(key kv.Key, value kv.Value) (pagefetcher.PageNo, error) {
	if err := t.materializeRoot(); err != nil {
		return 0, err
	}

	rootNo, has, err := t.rootNo()
	if err != nil {
		return 0, err
	}
	if !has {
		return 0, fmt.Errorf("%w: root missing immediately after materialization", blterr.ErrCorruption)
	}

	// Phase B: descend to the target leaf, recording the ancestor
	// stack with a metadata sentinel at the bottom.
	stack := []pagefetcher.PageNo{MetadataPageNo}

	guard, ok := t.fetcher.FetchRead(rootNo)
	if !ok {
		return 0, fmt.Errorf("%w: root page %d", blterr.ErrNotAllocated, rootNo)
	}
	cur := rootNo

	for {
		typ, err := nodeTypeOf(guard.Page())
		if err != nil {
			guard.Release()
			return 0, err
		}
		if typ == node.TypeLeaf {
			guard.Release()
			break
		}

		in, err := node.AsInternal(guard.Page(), t.keys)
		if err != nil {
			guard.Release()
			return 0, err
		}
		if child, ok := in.FindChild(key); ok {
			stack = append(stack, cur)
			guard.Release()
			nextGuard, ok2 := t.fetcher.FetchRead(child)
			if !ok2 {
				return 0, fmt.Errorf("%w: page %d", blterr.ErrNotAllocated, child)
			}
			guard, cur = nextGuard, child
			continue
		}
		right := in.RightSibling()
		if right == pagefetcher.NoPage {
			guard.Release()
			return 0, fmt.Errorf("%w: dead end at internal page %d during insert descent", blterr.ErrCorruption, cur)
		}
		nextGuard, ok2 := t.fetcher.FetchRead(right)
		guard.Release()
		if !ok2 {
			return 0, fmt.Errorf("%w: sibling %d", blterr.ErrNotAllocated, right)
		}
		guard, cur = nextGuard, right
	}

	// Phase C: re-acquire the leaf for write, moving right past any
	// concurrent split before we got here.
	leafNo := cur
	wguard, ok := t.fetcher.FetchWrite(leafNo)
	if !ok {
		return 0, fmt.Errorf("%w: leaf %d", blterr.ErrNotAllocated, leafNo)
	}
	for {
		leaf, err := node.AsLeaf(wguard.Page(), t.keys, t.values)
		if err != nil {
			wguard.Release()
			return 0, err
		}
		if key.CompareTo(leaf.Separator()) < 0 {
			break
		}
		right := leaf.RightSibling()
		if right == pagefetcher.NoPage {
			wguard.Release()
			return 0, fmt.Errorf("%w: leaf chain exhausted for key during insert", blterr.ErrCorruption)
		}
		nextGuard, ok2 := t.fetcher.FetchWrite(right)
		wguard.Release()
		if !ok2 {
			return 0, fmt.Errorf("%w: sibling %d", blterr.ErrNotAllocated, right)
		}
		wguard, leafNo = nextGuard, right
	}

	leaf, err := node.AsLeaf(wguard.Page(), t.keys, t.values)
	if err != nil {
		wguard.Release()
		return 0, err
	}
	if err := leaf.AddItem(key, value); err == nil {
		wguard.Release()
		return leafNo, nil
	} else if !errors.Is(err, page.ErrFull) {
		wguard.Release()
		return 0, err
	}

	// Phase D: the leaf is full. Split it and place (key, value) on
	// whichever side now covers it.
	rightNo, rightGuard := t.fetcher.NewPage(node.NodeSpecialSize)
	if err := splitLeaf(wguard.Page(), t.keys, t.values, rightGuard.Page(), rightNo); err != nil {
		wguard.Release()
		rightGuard.Release()
		return 0, err
	}

	leftLeaf, _ := node.AsLeaf(wguard.Page(), t.keys, t.values)
	leftSeparator := leftLeaf.Separator()
	rightLeaf, _ := node.AsLeaf(rightGuard.Page(), t.keys, t.values)
	rightSeparator := rightLeaf.Separator()

	landedLeaf := leafNo
	if key.CompareTo(leftSeparator) >= 0 {
		if err := rightLeaf.AddItem(key, value); err != nil {
			wguard.Release()
			rightGuard.Release()
			return 0, err
		}
		landedLeaf = rightNo
	} else {
		if err := leftLeaf.AddItem(key, value); err != nil {
			wguard.Release()
			rightGuard.Release()
			return 0, err
		}
	}

	t.log.WithFields(logrus.Fields{"left": leafNo, "right": rightNo}).Debug("split leaf")

	wguard.Release()
	rightGuard.Release()

	// Phase E: propagate the split upward.
	if err := t.propagate(stack, leafNo, leftSeparator, rightNo, rightSeparator); err != nil {
		return landedLeaf, err
	}
	return landedLeaf, nil
}

// propagate installs a new (separator, child) downlink in the parent
// of origChild, recursing upward (and growing the root, if needed)
// whenever the parent itself must split to make room.
func (t *Tree) propagate(stack []pagefetcher.PageNo, origChild pagefetcher.PageNo, origSeparator kv.Key, newChild pagefetcher.PageNo, newSeparator kv.Key) error {
	for {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if parent == MetadataPageNo {
			grew, err := t.growRoot(origChild, origSeparator, newChild, newSeparator)
			if err != nil {
				return err
			}
			if grew {
				return nil
			}
			rescued, err := t.rescueAncestor(origChild, origSeparator)
			if err != nil {
				return err
			}
			stack = rescued
			continue
		}

		pguard, ok := t.fetcher.FetchWrite(parent)
		if !ok {
			return fmt.Errorf("%w: parent page %d", blterr.ErrNotAllocated, parent)
		}
		for {
			in, err := node.AsInternal(pguard.Page(), t.keys)
			if err != nil {
				pguard.Release()
				return err
			}
			if in.HasDownlinkTo(origChild) {
				break
			}
			right := in.RightSibling()
			if right == pagefetcher.NoPage {
				pguard.Release()
				return fmt.Errorf("%w: no downlink for child %d along sibling chain", blterr.ErrCorruption, origChild)
			}
			nextGuard, ok2 := t.fetcher.FetchWrite(right)
			pguard.Release()
			if !ok2 {
				return fmt.Errorf("%w: sibling %d", blterr.ErrNotAllocated, right)
			}
			pguard, parent = nextGuard, right
		}

		in, err := node.AsInternal(pguard.Page(), t.keys)
		if err != nil {
			pguard.Release()
			return err
		}
		if err := in.UpdateItem(origChild, origSeparator); err != nil {
			pguard.Release()
			return err
		}
		if err := in.AddItem(newSeparator, newChild); err == nil {
			pguard.Release()
			return nil
		} else if !errors.Is(err, page.ErrFull) {
			pguard.Release()
			return err
		}

		// The parent is full too: split it the same way.
		siblingNo, siblingGuard := t.fetcher.NewPage(node.NodeSpecialSize)
		if err := splitInternal(pguard.Page(), t.keys, siblingGuard.Page(), siblingNo); err != nil {
			pguard.Release()
			siblingGuard.Release()
			return err
		}

		leftIn, _ := node.AsInternal(pguard.Page(), t.keys)
		rightIn, _ := node.AsInternal(siblingGuard.Page(), t.keys)

		target := leftIn
		if newSeparator.CompareTo(leftIn.Separator()) >= 0 {
			target = rightIn
		}
		if err := target.AddItem(newSeparator, newChild); err != nil {
			pguard.Release()
			siblingGuard.Release()
			return err
		}

		t.log.WithFields(logrus.Fields{"left": parent, "right": siblingNo}).Debug("split internal node")

		nextOrigSeparator := leftIn.Separator()
		nextNewSeparator := rightIn.Separator()
		pguard.Release()
		siblingGuard.Release()

		origChild, origSeparator = parent, nextOrigSeparator
		newChild, newSeparator = siblingNo, nextNewSeparator

		if len(stack) == 0 {
			stack = []pagefetcher.PageNo{MetadataPageNo}
		}
	}
}

// growRoot attempts to install a brand new root over origChild and
// newChild. grew is false if some other goroutine already grew the
// root first, in which case the caller must re-descend to find the
// real parent (see rescueAncestor).
func (t *Tree) growRoot(origChild pagefetcher.PageNo, origSeparator kv.Key, newChild pagefetcher.PageNo, newSeparator kv.Key) (grew bool, err error) {
	mguard, ok := t.fetcher.FetchWrite(MetadataPageNo)
	if !ok {
		return false, fmt.Errorf("%w: metadata page missing", blterr.ErrNotAllocated)
	}
	defer mguard.Release()

	meta, err := node.AsMetadata(mguard.Page())
	if err != nil {
		return false, err
	}
	rootNo, has, err := meta.RootNo()
	if err != nil {
		return false, err
	}
	if !has || rootNo != origChild {
		return false, nil
	}

	newRootNo, rguard := t.fetcher.NewPage(node.NodeSpecialSize)
	newRoot := node.NewInternal(rguard.Page(), t.keys)
	if err := newRoot.SetSeparator(t.keys.MaxKey()); err != nil {
		rguard.Release()
		return false, err
	}
	if err := newRoot.AddItem(origSeparator, origChild); err != nil {
		rguard.Release()
		return false, err
	}
	if err := newRoot.AddItem(newSeparator, newChild); err != nil {
		rguard.Release()
		return false, err
	}
	rguard.Release()

	if err := meta.SetRootNo(newRootNo); err != nil {
		return false, err
	}
	t.log.WithField("root", newRootNo).Debug("grew root")
	return true, nil
}

// rescueAncestor re-descends from the current root toward
// origSeparator to find the internal node that now holds the downlink
// to origChild, used when propagate discovers the root already grew
// under a concurrent insert.
func (t *Tree) rescueAncestor(origChild pagefetcher.PageNo, origSeparator kv.Key) ([]pagefetcher.PageNo, error) {
	rootNo, has, err := t.rootNo()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: root missing during split-propagation rescue", blterr.ErrCorruption)
	}

	cur := rootNo
	for {
		guard, ok := t.fetcher.FetchRead(cur)
		if !ok {
			return nil, fmt.Errorf("%w: page %d", blterr.ErrNotAllocated, cur)
		}
		in, err := node.AsInternal(guard.Page(), t.keys)
		if err != nil {
			guard.Release()
			return nil, err
		}
		if in.HasDownlinkTo(origChild) {
			guard.Release()
			return []pagefetcher.PageNo{MetadataPageNo, cur}, nil
		}

		var next pagefetcher.PageNo
		if child, ok := in.FindChild(origSeparator); ok {
			next = child
		} else if right := in.RightSibling(); right != pagefetcher.NoPage {
			next = right
		} else {
			guard.Release()
			return nil, fmt.Errorf("%w: rescue descent dead end searching for child %d", blterr.ErrCorruption, origChild)
		}
		guard.Release()
		cur = next
	}
}
