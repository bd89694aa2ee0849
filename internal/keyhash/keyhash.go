// Package keyhash derives stable composite keys from structured tuples.
//
// Each field is length-prefixed before hashing so that field boundaries
// survive values containing any delimiter; "a:b" + "c" and "a" + "b:c"
// hash differently.
package keyhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hash returns the hex sha256 over the fields in order.
func Hash(fields ...string) string {
	h := sha256.New()
	var lenBuf [4]byte
	for _, f := range fields {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f)))
		h.Write(lenBuf[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
