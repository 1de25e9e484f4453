package helpers

import (
	"fmt"
	"math/big"
)

var (
	// MaxUint256 is the largest amount representable by the ledger.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// MaxInt256 and MinInt256 bound the signed budget.
	MaxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	MinInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// StringToBigInt converts string to BigInt, panics on empty strings and errors
func StringToBigInt(s string) *big.Int {
	result, err := stringToBigInt(s)
	if err != nil {
		panic(err)
	}

	return result
}

func stringToBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("string is empty")
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		return nil, fmt.Errorf("cannot decode %s into big.Int", s)
	}

	return b, nil
}

// IsValidBigInt verifies that string is a valid non-negative int
func IsValidBigInt(s string) bool {
	if s == "" {
		return false
	}

	b, success := big.NewInt(0).SetString(s, 10)
	if !success {
		return false
	}

	if b.Cmp(big.NewInt(0)) == -1 {
		return false
	}

	return true
}

// IsUint256 reports whether v fits the unsigned 256-bit amount range.
func IsUint256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxUint256) <= 0
}

// IsInt256 reports whether v fits the signed 256-bit budget range.
func IsInt256(v *big.Int) bool {
	return v != nil && v.Cmp(MinInt256) >= 0 && v.Cmp(MaxInt256) <= 0
}

// AddUint256 returns a+b or an error if the sum leaves the uint256 range.
func AddUint256(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if !IsUint256(sum) {
		return nil, fmt.Errorf("addition overflow")
	}
	return sum, nil
}

// SubUint256 returns a-b or an error if the difference is negative.
func SubUint256(a, b *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(a, b)
	if !IsUint256(diff) {
		return nil, fmt.Errorf("subtraction overflow")
	}
	return diff, nil
}

// AddInt256 returns a+delta in int256 arithmetic. Overflow past either bound is an error
// named after the direction it happened in.
func AddInt256(a, delta *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, delta)
	if sum.Cmp(MaxInt256) > 0 {
		return nil, fmt.Errorf("addition overflow")
	}
	if sum.Cmp(MinInt256) < 0 {
		return nil, fmt.Errorf("subtraction overflow")
	}
	return sum, nil
}

// IncUint64 returns v+1 unless v is already the largest uint64.
func IncUint64(v uint64) (uint64, error) {
	if v == ^uint64(0) {
		return 0, fmt.Errorf("addition overflow")
	}
	return v + 1, nil
}

// Uint256Bytes left-pads v to the 32 byte big-endian word used in leaf encoding.
func Uint256Bytes(v *big.Int) []byte {
	b := make([]byte, 32)
	v.FillBytes(b)
	return b
}

// Uint64Bytes encodes v as a 32 byte big-endian word.
func Uint64Bytes(v uint64) []byte {
	return Uint256Bytes(new(big.Int).SetUint64(v))
}
