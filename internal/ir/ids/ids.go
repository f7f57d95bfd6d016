// Package ids implements the deterministic, content-addressed identifier
// strategy: a pure function from a tuple of canonical
// fields to a stable ID string. Identical inputs across machines and runs
// yield identical IDs.
package ids

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashHex hashes the canonical byte serialization of parts with xxHash64 and
// returns the requested number of hex digits: the zero-padded 16-digit
// hash truncated, or extended by re-hashing when more digits are asked for.
func hashHex(digits int, parts ...string) string {
	h := xxhash.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write(sepBytes)
		}
		_, _ = h.Write([]byte(p))
	}
	sum := h.Sum64()
	full := fmt.Sprintf("%016x", sum)
	if digits <= len(full) {
		return full[:digits]
	}
	// Extend deterministically by re-hashing the hex string itself.
	var b strings.Builder
	b.WriteString(full)
	seed := sum
	for b.Len() < digits {
		seed = xxhash.Sum64String(strconv.FormatUint(seed, 16))
		b.WriteString(fmt.Sprintf("%016x", seed))
	}
	return b.String()[:digits]
}

var sepBytes = []byte{0x1f} // unit separator, avoids accidental collisions between fields

// NodeID produces "node:{repo_id}:{kind_lowercase}:{24-hex-hash}" where the
// hash is a stable function of (language, kind, fqn, file_path, signature).
func NodeID(repoID, language, kind, fqn, filePath, signature string) string {
	k := strings.ToLower(kind)
	h := hashHex(24, language, k, fqn, filePath, signature)
	return fmt.Sprintf("node:%s:%s:%s", repoID, k, h)
}

// EdgeID produces "edge:{kind_lowercase}:{20-hex-hash}" where the hash is a
// stable function of (kind, source_id, target_id, occurrence_counter).
func EdgeID(kind, sourceID, targetID string, occurrenceCounter int) string {
	k := strings.ToLower(kind)
	h := hashHex(20, k, sourceID, targetID, strconv.Itoa(occurrenceCounter))
	return fmt.Sprintf("edge:%s:%s", k, h)
}

// ExpressionID produces "expr:{repo_id}:{file_path}:{line}:{col}:{counter}".
func ExpressionID(repoID, filePath string, line, col, counter int) string {
	return fmt.Sprintf("expr:%s:%s:%d:%d:%d", repoID, filePath, line, col, counter)
}

// OccurrenceCounter assigns monotonically increasing "occ:{n}" IDs. It is not
// safe for concurrent use without external synchronization — each builder
// session owns one counter and resets it at session start.
type OccurrenceCounter struct {
	n int
}

// Next returns the next occurrence ID, starting at "occ:1".
func (c *OccurrenceCounter) Next() string {
	c.n++
	return fmt.Sprintf("occ:%d", c.n)
}

// Reset zeroes the counter, matching clear_caches()'s per-session reset
// contract.
func (c *OccurrenceCounter) Reset() {
	c.n = 0
}
