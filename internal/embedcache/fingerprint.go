package embedcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint hashes the ordered corpus lines. Each line is length-prefixed
// so that ["ab", "c"] and ["a", "bc"] differ.
func Fingerprint(lines []string) string {
	h := sha256.New()
	var size [8]byte
	for _, line := range lines {
		binary.BigEndian.PutUint64(size[:], uint64(len(line)))
		_, _ = h.Write(size[:])
		_, _ = h.Write([]byte(line))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
