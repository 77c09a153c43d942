package weight

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"github.com/ppiankov/accord/internal/model"
)

// Hasher maps a submission to a reproducible 64-bit value.
type Hasher interface {
	Sum64(sub model.Submission) uint64
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(sub model.Submission) uint64

// Sum64 calls f(sub).
func (f HasherFunc) Sum64(sub model.Submission) uint64 {
	return f(sub)
}

// KeyedHasher is HMAC-SHA256 over DID, intent and timestamp, truncated to
// the first 8 bytes (big-endian).
type KeyedHasher struct {
	key []byte
}

// NewKeyedHasher creates a hasher with the given key.
func NewKeyedHasher(key []byte) *KeyedHasher {
	k := make([]byte, len(key))
	copy(k, key)
	return &KeyedHasher{key: k}
}

// Sum64 implements Hasher.
func (h *KeyedHasher) Sum64(sub model.Submission) uint64 {
	mac := hmac.New(sha256.New, h.key)
	mac.Write(CanonicalBytes(sub))
	return binary.BigEndian.Uint64(mac.Sum(nil)[:8])
}

// CanonicalBytes encodes the hashed fields of a submission. Fields are
// length-prefixed so ("ab","c") and ("a","bc") differ.
func CanonicalBytes(sub model.Submission) []byte {
	did := []byte(sub.Identity.DID)
	intent := []byte(sub.Intent)

	buf := make([]byte, 0, 4+len(did)+4+len(intent)+8)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(did)))
	buf = append(buf, did...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(intent)))
	buf = append(buf, intent...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(sub.Timestamp))
	return buf
}
