package kv

import (
	"encoding/binary"
	"math"
)

// Uint64Key is a fixed-size, 8-byte-aligned key, the default key type
// used by S1-S5 style scenarios and by internal-node downlinks.
type Uint64Key uint64

func (k Uint64Key) Size() uint16      { return 8 }
func (k Uint64Key) Align() uintptr    { return 8 }
func (k Uint64Key) IsFixedSize() bool { return true }

func (k Uint64Key) WriteTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf, uint64(k))
}

func (k Uint64Key) CompareTo(other Key) int {
	o := other.(Uint64Key)
	switch {
	case k < o:
		return -1
	case k > o:
		return 1
	default:
		return 0
	}
}

// Uint64KeyFactory produces Uint64Key values.
type Uint64KeyFactory struct{}

func (Uint64KeyFactory) Align() uintptr { return 8 }

func (Uint64KeyFactory) FixedSize() (uint16, bool) { return 8, true }

func (Uint64KeyFactory) ReadKey(buf []byte, size uint16) Key {
	return Uint64Key(binary.LittleEndian.Uint64(buf[:8]))
}

func (Uint64KeyFactory) MaxKey() Key { return Uint64Key(math.MaxUint64) }
