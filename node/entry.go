package node

import (
	"encoding/binary"

	"github.com/blinkdb/blinktree/internal/align"
	"github.com/blinkdb/blinktree/kv"
	"github.com/blinkdb/blinktree/pagefetcher"
)

// trailerSize is the width of the dynamic-item trailer: key_size,
// value_size, value_offset, each a u16, written after the payload
// whenever either the key or the value is not fixed-size. A reader
// that only knows the factory can then recover exactly where the key
// ends and the value begins without needing the page's slot size for
// anything but locating the trailer itself.
const trailerSize = 6

// entryLayout computes where the value portion of a composite
// (key, value) item begins and how large the whole item is, given the
// key's actual size and the value's alignment/size. This is the same
// calculation whether the value is a kv.Value (leaf entries) or a bare
// page number (internal downlinks): pad the key up to the value's
// alignment, then place the value, then append a trailer if either
// side is not fixed-size.
func entryLayout(keySize uint16, valueAlign uintptr, valueSize uint16, fixed bool) (valueOffset, total uint16) {
	valueOffset = uint16(align.RoundUp(uintptr(keySize), valueAlign))
	total = valueOffset + valueSize
	if !fixed {
		total += trailerSize
	}
	return valueOffset, total
}

func writeTrailer(buf []byte, keySize, valueSize, valueOffset uint16) {
	trailer := buf[len(buf)-trailerSize:]
	binary.LittleEndian.PutUint16(trailer[0:2], keySize)
	binary.LittleEndian.PutUint16(trailer[2:4], valueSize)
	binary.LittleEndian.PutUint16(trailer[4:6], valueOffset)
}

func readTrailer(buf []byte) (keySize, valueSize, valueOffset uint16) {
	trailer := buf[len(buf)-trailerSize:]
	keySize = binary.LittleEndian.Uint16(trailer[0:2])
	valueSize = binary.LittleEndian.Uint16(trailer[2:4])
	valueOffset = binary.LittleEndian.Uint16(trailer[4:6])
	return
}

// encodeLeafEntry serializes a (key, value) pair the way a leaf node
// stores it: key bytes, padding up to the value's alignment, value
// bytes, and — unless both key and value are fixed-size — a 6-byte
// trailer recording key_size, value_size, value_offset.
func encodeLeafEntry(key kv.Key, value kv.Value) []byte {
	keySize := key.Size()
	valueSize := value.Size()
	fixed := key.IsFixedSize() && value.IsFixedSize()
	valueOffset, total := entryLayout(keySize, value.Align(), valueSize, fixed)

	buf := make([]byte, total)
	key.WriteTo(buf[:keySize])
	value.WriteTo(buf[valueOffset : valueOffset+valueSize])
	if !fixed {
		writeTrailer(buf, keySize, valueSize, valueOffset)
	}
	return buf
}

// decodeLeafEntry is the inverse of encodeLeafEntry.
func decodeLeafEntry(buf []byte, keys kv.KeyFactory, values kv.ValueFactory) (kv.Key, kv.Value) {
	kFixedSize, kFixed := keys.FixedSize()
	vFixedSize, vFixed := values.FixedSize()

	var keySize, valueSize, valueOffset uint16
	if kFixed && vFixed {
		keySize = kFixedSize
		valueSize = vFixedSize
		valueOffset = uint16(align.RoundUp(uintptr(keySize), values.Align()))
	} else {
		keySize, valueSize, valueOffset = readTrailer(buf)
	}

	key := keys.ReadKey(buf[:keySize], keySize)
	value := values.ReadValue(buf[valueOffset:valueOffset+valueSize], valueSize)
	return key, value
}

// encodeDownlink serializes an internal node's (key, child page
// number) pair. The child page number is always a fixed-size,
// 8-byte-aligned u64, so only the key's fixed-ness decides whether a
// trailer is needed.
func encodeDownlink(key kv.Key, child pagefetcher.PageNo) []byte {
	const childSize = 8
	const childAlign = 8

	keySize := key.Size()
	fixed := key.IsFixedSize()
	valueOffset, total := entryLayout(keySize, childAlign, childSize, fixed)

	buf := make([]byte, total)
	key.WriteTo(buf[:keySize])
	binary.LittleEndian.PutUint64(buf[valueOffset:valueOffset+childSize], uint64(child))
	if !fixed {
		writeTrailer(buf, keySize, childSize, valueOffset)
	}
	return buf
}

// decodeDownlink is the inverse of encodeDownlink.
func decodeDownlink(buf []byte, keys kv.KeyFactory) (kv.Key, pagefetcher.PageNo) {
	const childSize = 8
	const childAlign = 8

	kFixedSize, kFixed := keys.FixedSize()

	var keySize, valueOffset uint16
	if kFixed {
		keySize = kFixedSize
		valueOffset = uint16(align.RoundUp(uintptr(keySize), childAlign))
	} else {
		keySize, _, valueOffset = readTrailer(buf)
	}

	key := keys.ReadKey(buf[:keySize], keySize)
	child := pagefetcher.PageNo(binary.LittleEndian.Uint64(buf[valueOffset : valueOffset+childSize]))
	return key, child
}

// entryAlign returns the alignment a composite item must be placed at
// within the page: the larger of the key's and value's own alignment.
func entryAlign(keyAlign, valueAlign uintptr) uintptr {
	if keyAlign > valueAlign {
		return keyAlign
	}
	return valueAlign
}
