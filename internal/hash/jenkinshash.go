package hash

// JenkinsHashAlgorithm - The default bucket selection algorithm, Bob Jenkins' one-at-a-time hash.
// Every byte is added to the running state which is then spread with a shift-add and a shift-xor, and after the
// last byte a final avalanche step makes single bit changes in the key propagate over the whole 32 bit value.
// The state starts at zero, hence an empty key hashes to 0.
type JenkinsHashAlgorithm struct{}

// NewJenkinsHashAlgorithm - Returns a pointer to a new JenkinsHashAlgorithm instance
func NewJenkinsHashAlgorithm() *JenkinsHashAlgorithm {
	return &JenkinsHashAlgorithm{}
}

// HashFunc - Given key it generates a 32 bit hash value
func (J *JenkinsHashAlgorithm) HashFunc(key []byte) uint32 {
	var h uint32
	for _, b := range key {
		h += uint32(b)
		h += h << 10
		h ^= h >> 6
	}

	h += h << 3
	h ^= h >> 11
	h += h << 15

	return h
}
