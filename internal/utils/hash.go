package utils

import (
	"fmt"
	"hash/fnv"
)

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// HashHex renders the FNV-64a digest of b as a fixed-width hex string.
func HashHex(b []byte) string {
	return fmt.Sprintf("%016x", HashStringToUint64(string(b)))
}
