package utils

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employeeID string

type point struct {
	X, Y int
}

type reading struct {
	Sensor string
	Value  float64
}

type tagged struct {
	Tag any
}

type pair struct {
	A, B string
}

type account struct {
	balance   int
	formatted int
}

func (a *account) String() string {
	a.formatted++
	return fmt.Sprintf("account(%d)", a.balance)
}

type holder struct {
	Acc *account
}

func TestKeyBytes(t *testing.T) {
	t.Run("strings are used as is", func(t *testing.T) {
		// Execute
		b := KeyBytes("Richard Stallman")

		// Check
		assert.Equal(t, []byte("Richard Stallman"), b, "string bytes")
	})

	t.Run("integers are fixed width big endian", func(t *testing.T) {
		// Execute and Check
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, KeyBytes(258), "int")
		assert.Equal(t, []byte{0, 0, 1, 2}, KeyBytes(uint32(258)), "uint32")
		assert.Equal(t, []byte{1, 2}, KeyBytes(int16(258)), "int16")
		assert.Equal(t, []byte{7}, KeyBytes(uint8(7)), "uint8")
	})

	t.Run("booleans are one byte", func(t *testing.T) {
		// Execute and Check
		assert.Equal(t, []byte{1}, KeyBytes(true), "true")
		assert.Equal(t, []byte{0}, KeyBytes(false), "false")
	})

	t.Run("named strings are used as is", func(t *testing.T) {
		// Execute and Check
		assert.Equal(t, []byte("E-42"), KeyBytes(employeeID("E-42")), "named string")
	})

	t.Run("equal keys give equal bytes", func(t *testing.T) {
		acc := &account{balance: 1}
		accBefore := KeyBytes(acc)
		acc.balance = 2
		negZero := math.Copysign(0, -1)

		testCases := []struct {
			desc string
			a, b any
		}{
			{desc: "float64 zero and negative zero", a: 0.0, b: negZero},
			{desc: "float32 zero and negative zero", a: float32(0), b: float32(negZero)},
			{desc: "complex with negative zero parts", a: complex(0, 0), b: complex(negZero, negZero)},
			{desc: "struct with negative zero field", a: reading{Sensor: "t1", Value: 0}, b: reading{Sensor: "t1", Value: negZero}},
			{desc: "array of floats", a: [2]float64{0, 1}, b: [2]float64{negZero, 1}},
			{desc: "struct with interface field", a: tagged{Tag: 0.0}, b: tagged{Tag: negZero}},
			{desc: "named struct equal to itself", a: point{X: 1, Y: 2}, b: point{X: 1, Y: 2}},
		}
		for _, tc := range testCases {
			t.Run(tc.desc, func(t *testing.T) {
				// Check
				require.True(t, tc.a == tc.b, "keys compare equal")
				assert.Equal(t, KeyBytes(tc.a), KeyBytes(tc.b), "same bytes")
			})
		}

		t.Run("pointer keeps its bytes when the pointee changes", func(t *testing.T) {
			// Check
			assert.Equal(t, accBefore, KeyBytes(acc), "hashed by address")
		})
	})

	t.Run("different keys give different bytes", func(t *testing.T) {
		testCases := []struct {
			desc string
			a, b any
		}{
			{desc: "distinct pointers to equal values", a: &account{balance: 1}, b: &account{balance: 1}},
			{desc: "string fields split differently", a: pair{A: "ab", B: "c"}, b: pair{A: "a", B: "bc"}},
			{desc: "interface fields of different types", a: tagged{Tag: 1}, b: tagged{Tag: int64(1)}},
			{desc: "nil and zero interface field", a: tagged{}, b: tagged{Tag: 0}},
		}
		for _, tc := range testCases {
			t.Run(tc.desc, func(t *testing.T) {
				// Check
				require.False(t, tc.a == tc.b, "keys differ")
				assert.NotEqual(t, KeyBytes(tc.a), KeyBytes(tc.b), "different bytes")
			})
		}
	})

	t.Run("formatting methods are never called", func(t *testing.T) {
		// Prepare
		acc := &account{balance: 1}

		// Execute
		KeyBytes(acc)
		KeyBytes(holder{Acc: acc})

		// Check
		assert.Zero(t, acc.formatted, "String not called")
	})
}

func TestIsComparable(t *testing.T) {
	t.Run("comparable keys", func(t *testing.T) {
		// Execute and Check
		assert.True(t, IsComparable(nil), "nil")
		assert.True(t, IsComparable("a"), "string")
		assert.True(t, IsComparable(point{X: 1}), "struct")
		assert.True(t, IsComparable(tagged{Tag: 1}), "struct with comparable interface field")
		assert.True(t, IsComparable(&account{}), "pointer")
	})

	t.Run("uncomparable keys", func(t *testing.T) {
		// Execute and Check
		assert.False(t, IsComparable([]int{1}), "slice")
		assert.False(t, IsComparable(map[string]int{}), "map")
		assert.False(t, IsComparable(tagged{Tag: []int{1}}), "slice inside interface field")
		assert.False(t, IsComparable([1]any{func() {}}), "func inside array")
	})
}

func TestMayHoldUncomparable(t *testing.T) {
	t.Run("only interfaces can hide uncomparable values", func(t *testing.T) {
		// Execute and Check
		assert.False(t, MayHoldUncomparable(reflect.TypeFor[string]()), "string")
		assert.False(t, MayHoldUncomparable(reflect.TypeFor[point]()), "plain struct")
		assert.False(t, MayHoldUncomparable(reflect.TypeFor[*account]()), "pointer")
		assert.True(t, MayHoldUncomparable(reflect.TypeFor[any]()), "interface")
		assert.True(t, MayHoldUncomparable(reflect.TypeFor[tagged]()), "struct with interface field")
		assert.True(t, MayHoldUncomparable(reflect.TypeFor[[2]error]()), "array of interfaces")
	})
}

func TestBucketNo(t *testing.T) {
	t.Run("maps hash values by modulo", func(t *testing.T) {
		// Execute and Check
		assert.Equal(t, 0, BucketNo(0, 7), "zero")
		assert.Equal(t, 3, BucketNo(10, 7), "ten")
		assert.Equal(t, 0, BucketNo(0xffffffff, 1), "single bucket")
		assert.Equal(t, int(uint32(0xca2e9442)%1000), BucketNo(0xca2e9442, 1000), "large hash")
	})
}
