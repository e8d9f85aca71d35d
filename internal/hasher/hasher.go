// Package hasher provides the content digest used for change detection
// throughout codescope: the Merkle tree (internal/merkle) and the metadata
// cache (internal/metacache) both key on the digest produced here.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Hash returns the SHA-256 digest of data. It is deterministic and pure:
// the same bytes always produce the same digest.
func Hash(data []byte) [Size]byte {
	return sha256.Sum256(data)
}

// HashHex returns the digest of data as a lowercase hex string.
func HashHex(data []byte) string {
	sum := Hash(data)
	return hex.EncodeToString(sum[:])
}
