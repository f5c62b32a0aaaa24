package hashtable

import "fmt"

// InvalidBucketCount - Custom error to inform that a table was requested with zero or a negative number of buckets
type InvalidBucketCount struct {
	msg string
}

// Error - Used to notify that the bucket count is invalid
func (E InvalidBucketCount) Error() string {
	if E.msg == "" {
		return "invalid bucket count"
	}
	return E.msg
}

// Is - Matches any InvalidBucketCount regardless of message
func (E InvalidBucketCount) Is(target error) bool {
	_, ok := target.(InvalidBucketCount)
	return ok
}

// BucketPoisoned - Custom error to inform that a bucket was left in a possibly inconsistent state by a panic while
// its lock was held. The bucket stays poisoned until ResetBucket is called on it.
type BucketPoisoned struct {
	bucketNo int
	cause    any
}

// Error - Used to notify that a bucket is poisoned
func (E BucketPoisoned) Error() string {
	if E.cause != nil {
		return fmt.Sprintf("bucket %d poisoned: %v", E.bucketNo, E.cause)
	}
	return fmt.Sprintf("bucket %d poisoned", E.bucketNo)
}

// Is - Matches any BucketPoisoned regardless of bucket and cause
func (E BucketPoisoned) Is(target error) bool {
	_, ok := target.(BucketPoisoned)
	return ok
}

// BucketNo - Returns the number of the poisoned bucket
func (E BucketPoisoned) BucketNo() int {
	return E.bucketNo
}

// Cause - Returns the value the critical section panicked with, nil if the bucket was poisoned by an earlier call
func (E BucketPoisoned) Cause() any {
	return E.cause
}

// BucketBusy - Custom error to inform that a non waiting operation found the bucket lock held by someone else
type BucketBusy struct {
	bucketNo int
}

// Error - Used to notify that a bucket is busy
func (E BucketBusy) Error() string {
	return fmt.Sprintf("bucket %d busy", E.bucketNo)
}

// Is - Matches any BucketBusy regardless of bucket
func (E BucketBusy) Is(target error) bool {
	_, ok := target.(BucketBusy)
	return ok
}

// NoSuchBucket - Custom error to inform that a bucket number is outside the table
type NoSuchBucket struct {
	msg string
}

// Error - Used to notify that the bucket does not exist
func (E NoSuchBucket) Error() string {
	if E.msg == "" {
		return "no such bucket"
	}
	return E.msg
}

// Is - Matches any NoSuchBucket regardless of message
func (E NoSuchBucket) Is(target error) bool {
	_, ok := target.(NoSuchBucket)
	return ok
}

// NoRecordFound - Custom error to inform that an iteration has no more entries
type NoRecordFound struct {
	msg string
}

// Error - Used to notify that no record was found
func (E NoRecordFound) Error() string {
	if E.msg == "" {
		return "no record found"
	}
	return E.msg
}

// Is - Matches any NoRecordFound regardless of message
func (E NoRecordFound) Is(target error) bool {
	_, ok := target.(NoRecordFound)
	return ok
}

// UncomparableKey - Custom error to inform that a key holds a slice, map or function behind an interface and would
// panic when compared with ==
type UncomparableKey struct {
	msg string
}

// Error - Used to notify that the key can't be compared
func (E UncomparableKey) Error() string {
	if E.msg == "" {
		return "uncomparable key"
	}
	return E.msg
}

// Is - Matches any UncomparableKey regardless of message
func (E UncomparableKey) Is(target error) bool {
	_, ok := target.(UncomparableKey)
	return ok
}
