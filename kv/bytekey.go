package kv

// ByteKey is a single-byte key that reports itself as dynamically
// sized even though every instance happens to be one byte wide. This
// mirrors original_source's KeyDynamic test fixture: a key type whose
// author chose the dynamic-item encoding path (trailer-bearing) rather
// than the fixed-size path, independent of whether the size happens to
// be constant in practice. Pairing ByteKey with TupleValue is what
// exercises a composite leaf entry's dynamic-item trailer end to end.
type ByteKey byte

func (k ByteKey) Size() uint16      { return 1 }
func (k ByteKey) Align() uintptr    { return 1 }
func (k ByteKey) IsFixedSize() bool { return false }

func (k ByteKey) WriteTo(buf []byte) {
	buf[0] = byte(k)
}

func (k ByteKey) CompareTo(other Key) int {
	o := other.(ByteKey)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

// ByteKeyFactory produces ByteKey values.
type ByteKeyFactory struct{}

func (ByteKeyFactory) Align() uintptr { return 1 }

func (ByteKeyFactory) FixedSize() (uint16, bool) { return 0, false }

func (ByteKeyFactory) ReadKey(buf []byte, size uint16) Key {
	return ByteKey(buf[0])
}

func (ByteKeyFactory) MaxKey() Key { return ByteKey(0xFF) }
