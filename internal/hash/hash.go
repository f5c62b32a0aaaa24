package hash

import (
	"fmt"

	"github.com/ryanengphoto/concurrent-hash-table/hashfunc"
)

// Names of the internally available hash algorithms, as accepted by ByName
const (
	Jenkins = "jenkins"
	CRC32   = "crc32"
	XXHash  = "xxhash"
)

// ByName - Returns the internal hash algorithm registered under name.
// An empty name gives the default Jenkins one-at-a-time algorithm.
func ByName(name string) (hashfunc.HashAlgorithm, error) {
	switch name {
	case "", Jenkins:
		return NewJenkinsHashAlgorithm(), nil
	case CRC32:
		return NewCRC32HashAlgorithm(), nil
	case XXHash:
		return NewXXHashAlgorithm(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q, use one of %s, %s or %s", name, Jenkins, CRC32, XXHash)
	}
}
