// Package kv defines the capability contracts that every key and value
// type stored in the tree must satisfy: a total order, a byte size (fixed
// or dynamic), a static alignment, and a byte serialization round-trip.
// The tree itself never knows the concrete key or value type; it only
// ever holds a kv.Key/kv.Value plus the matching factory pair.
package kv

// Item is the serialization capability shared by keys and values: how
// many bytes it occupies on the page, what alignment its stored form
// requires, whether that size is the same for every instance of the
// type, and how to write itself into a caller-provided buffer of
// exactly Size() bytes.
type Item interface {
	// Size returns the number of bytes WriteTo will write.
	Size() uint16
	// Align returns the byte alignment the stored form requires.
	// Must be a power of two.
	Align() uintptr
	// IsFixedSize reports whether every instance of this type reports
	// the same Size(). A composite item built from a fixed-size key
	// and a fixed-size value can skip the dynamic-item trailer.
	IsFixedSize() bool
	// WriteTo serializes the item into buf, which is exactly Size()
	// bytes long.
	WriteTo(buf []byte)
}

// Key is an orderable Item usable as a tree key.
type Key interface {
	Item
	// CompareTo returns a negative number if k sorts before other,
	// zero if equal, and a positive number if k sorts after other.
	CompareTo(other Key) int
}

// Value is an orderable Item usable as a tree value.
type Value interface {
	Item
	// CompareTo returns a negative number if v sorts before other,
	// zero if equal, and a positive number if v sorts after other.
	CompareTo(other Value) int
}

// KeyFactory reconstructs Key values from their serialized form and
// knows the static properties of the key type it produces. It is the
// decode-time counterpart to Key: Align and FixedSize must be callable
// before any instance exists.
type KeyFactory interface {
	// Align returns the alignment every Key this factory produces
	// requires, independent of any instance.
	Align() uintptr
	// FixedSize returns (size, true) if every key this factory
	// produces has the same size, or (0, false) if size varies
	// per-instance and must be read from a dynamic-item trailer.
	FixedSize() (uint16, bool)
	// ReadKey reconstructs a Key from buf, which is exactly size
	// bytes long.
	ReadKey(buf []byte, size uint16) Key
	// MaxKey returns the largest possible key of this type, used as
	// the separator of the rightmost node at any level.
	MaxKey() Key
}

// ValueFactory is the decode-time counterpart to Value.
type ValueFactory interface {
	// Align returns the alignment every Value this factory produces
	// requires, independent of any instance.
	Align() uintptr
	// FixedSize returns (size, true) if every value this factory
	// produces has the same size, or (0, false) otherwise.
	FixedSize() (uint16, bool)
	// ReadValue reconstructs a Value from buf, which is exactly size
	// bytes long.
	ReadValue(buf []byte, size uint16) Value
}
