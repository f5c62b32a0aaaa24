package hash

import (
	"hash/crc32"
)

// CRC32HashAlgorithm - Bucket selection algorithm implemented using crc32.ChecksumIEEE to create a hash value over
// the key.
type CRC32HashAlgorithm struct{}

// NewCRC32HashAlgorithm - Returns a pointer to a new CRC32HashAlgorithm instance
func NewCRC32HashAlgorithm() *CRC32HashAlgorithm {
	return &CRC32HashAlgorithm{}
}

// HashFunc - Given key it generates a 32 bit hash value
func (C *CRC32HashAlgorithm) HashFunc(key []byte) uint32 {
	return crc32.ChecksumIEEE(key)
}
