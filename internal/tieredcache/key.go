// Package tieredcache is the two-tier (in-memory + on-disk) IR cache: an
// L1 LRU bounded by both entry count and byte size, and an L2 on-disk
// store that L1 misses fall through to and promote from. Keys are
// content-addressed over (file_path, content).
package tieredcache

import "github.com/cespare/xxhash/v2"

// KeyFromContent derives the content-addressed cache key for a file, mirroring
// the ID Strategy's hashHex approach (internal/ir/ids) rather than inventing
// a second hashing convention.
func KeyFromContent(filePath string, content []byte) string {
	h := xxhash.New()
	_, _ = h.Write([]byte(filePath))
	_, _ = h.Write([]byte{0x1f})
	_, _ = h.Write(content)
	return hex16(h.Sum64())
}

const hexDigits = "0123456789abcdef"

func hex16(v uint64) string {
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(b)
}
