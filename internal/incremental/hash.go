package incremental

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// HashFunc computes a hex-encoded content hash for a file's bytes.
type HashFunc func([]byte) string

// XXHash64Hex is the primary content hash, consistent with the
// xxHash64 convention used throughout internal/ir/ids and the tiered cache
// key.
func XXHash64Hex(data []byte) string {
	sum := xxhash.Sum64(data)
	return hex.EncodeToString(encodeUint64(sum))
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// MD5Hex is the fallback content hash for environments where xxHash64 is
// unavailable.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
