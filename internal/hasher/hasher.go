// Package hasher derives short content hashes for output filenames and
// result-cache keys.
package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// NameLen is the hex length used in content-addressed output names.
const NameLen = 8

// ContentHash returns the hex xxHash64 of data truncated to hexLen
// characters; hexLen <= 0 or >= 16 returns all 16.
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// CacheKeyLen is the hex length of a cache key digest (128 bits).
const CacheKeyLen = 32

// CacheKey identifies one processing result: the input bytes plus every
// parameter that changes the output. Cached photos are served to whoever
// presents a matching key, so the digest is SHA-256 rather than xxhash.
// Parameters are length-prefixed so that ("ab","c") and ("a","bc") differ.
func CacheKey(prefix string, data []byte, params ...string) string {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	h.Write(n[:])
	h.Write(data)
	for _, p := range params {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	sum := hex.EncodeToString(h.Sum(nil))[:CacheKeyLen]
	if prefix == "" {
		return sum
	}
	return prefix + ":" + sum
}

func truncate(v uint64, hexLen int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	full := hex.EncodeToString(buf[:])
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
