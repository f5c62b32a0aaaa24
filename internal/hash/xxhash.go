package hash

import (
	"github.com/cespare/xxhash/v2"
)

// XXHashAlgorithm - Bucket selection algorithm based on xxhash64, truncated to its lower 32 bits.
type XXHashAlgorithm struct{}

// NewXXHashAlgorithm - Returns a pointer to a new XXHashAlgorithm instance
func NewXXHashAlgorithm() *XXHashAlgorithm {
	return &XXHashAlgorithm{}
}

// HashFunc - Given key it generates a 32 bit hash value
func (X *XXHashAlgorithm) HashFunc(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}
