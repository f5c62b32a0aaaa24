package utils

import (
	"encoding/binary"
	"math"
	"reflect"
)

// KeyBytes - Returns the byte representation of a key that is fed to the hash algorithm.
// Keys that are equal under == always give the same bytes:
//   - strings and byte slices are used as is, integers are fixed width big endian and booleans a single byte
//   - floats and complex numbers use their IEEE 754 bits with negative zero folded into positive zero
//   - pointers, channels and unsafe pointers use their address, never what they point to
//   - arrays and structs are the concatenation of their elements, strings inside them are length prefixed
//   - interface values inside structs and arrays are prefixed with their dynamic type
//
// Values that cannot be compared with == (slices, maps and functions held in an interface) give only a kind tag.
func KeyBytes(key any) []byte {
	switch k := key.(type) {
	case string:
		return []byte(k)
	case []byte:
		return k
	case int:
		return binary.BigEndian.AppendUint64(nil, uint64(k))
	case int8:
		return []byte{byte(k)}
	case int16:
		return binary.BigEndian.AppendUint16(nil, uint16(k))
	case int32:
		return binary.BigEndian.AppendUint32(nil, uint32(k))
	case int64:
		return binary.BigEndian.AppendUint64(nil, uint64(k))
	case uint:
		return binary.BigEndian.AppendUint64(nil, uint64(k))
	case uint8:
		return []byte{k}
	case uint16:
		return binary.BigEndian.AppendUint16(nil, k)
	case uint32:
		return binary.BigEndian.AppendUint32(nil, k)
	case uint64:
		return binary.BigEndian.AppendUint64(nil, k)
	case uintptr:
		return binary.BigEndian.AppendUint64(nil, uint64(k))
	case float32:
		return appendFloat32(nil, k)
	case float64:
		return appendFloat64(nil, k)
	case bool:
		if k {
			return []byte{1}
		}
		return []byte{0}
	case nil:
		return nil
	}

	v := reflect.ValueOf(key)
	if v.Kind() == reflect.String {
		return []byte(v.String())
	}
	return appendValue(nil, v)
}

// IsComparable - Tells whether key can be compared with == without panicking. Only keys holding slices, maps or
// functions behind an interface, directly or inside a struct or array, fail.
func IsComparable(key any) bool {
	if key == nil {
		return true
	}
	return reflect.ValueOf(key).Comparable()
}

// MayHoldUncomparable - Tells whether values of type t can panic when compared with ==, which is only possible
// through an interface held directly or inside a struct or array
func MayHoldUncomparable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return MayHoldUncomparable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if MayHoldUncomparable(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// BucketNo - Maps a hash value onto one of numberOfBuckets buckets
func BucketNo(hashValue uint32, numberOfBuckets int) int {
	return int(hashValue % uint32(numberOfBuckets))
}

func appendValue(buf []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(buf, 1)
		}
		return append(buf, 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return binary.BigEndian.AppendUint64(buf, uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return binary.BigEndian.AppendUint64(buf, v.Uint())
	case reflect.Float32:
		return appendFloat32(buf, float32(v.Float()))
	case reflect.Float64:
		return appendFloat64(buf, v.Float())
	case reflect.Complex64:
		c := v.Complex()
		return appendFloat32(appendFloat32(buf, float32(real(c))), float32(imag(c)))
	case reflect.Complex128:
		c := v.Complex()
		return appendFloat64(appendFloat64(buf, real(c)), imag(c))
	case reflect.String:
		s := v.String()
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(s)))
		return append(buf, s...)
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return binary.BigEndian.AppendUint64(buf, uint64(v.Pointer()))
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			buf = appendValue(buf, v.Index(i))
		}
		return buf
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			buf = appendValue(buf, v.Field(i))
		}
		return buf
	case reflect.Interface:
		if v.IsNil() {
			return append(buf, 0)
		}
		e := v.Elem()
		t := e.Type().String()
		buf = append(buf, 1)
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(t)))
		buf = append(buf, t...)
		return appendValue(buf, e)
	default:
		return append(buf, byte(v.Kind()))
	}
}

// appendFloat64 - Appends the bits of f, with -0 written as +0 since they compare equal
func appendFloat64(buf []byte, f float64) []byte {
	if f == 0 {
		f = 0
	}
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
}

func appendFloat32(buf []byte, f float32) []byte {
	if f == 0 {
		f = 0
	}
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(f))
}
