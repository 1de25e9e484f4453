package helpers

import (
	"math/big"
	"testing"
)

func TestIsValidBigInt(t *testing.T) {
	cases := map[string]bool{
		"":   false,
		"1":  true,
		"1s": false,
		"-1": false,
		"123437456298465928764598276349587623948756928764958762934569": true,
	}

	for str, result := range cases {
		if IsValidBigInt(str) != result {
			t.Fatalf("IsValidBigInt(%q) != %v", str, result)
		}
	}
}

func TestStringToBigInt(t *testing.T) {
	cases := map[string]bool{
		"":   false,
		"1":  true,
		"1s": false,
		"-1": true,
		"123437456298465928764598276349587623948756928764958762934569": true,
	}

	for str, result := range cases {
		_, err := stringToBigInt(str)

		if err != nil && result || err == nil && !result {
			t.Fatalf("%s %s", err, str)
		}
	}

	result := StringToBigInt("10")
	if result.Cmp(big.NewInt(10)) != 0 {
		t.Fail()
	}
}

func TestAddInt256(t *testing.T) {
	t.Parallel()

	if _, err := AddInt256(MaxInt256, big.NewInt(1)); err == nil || err.Error() != "addition overflow" {
		t.Fatalf("expected addition overflow, got %v", err)
	}

	if _, err := AddInt256(MinInt256, big.NewInt(-1)); err == nil || err.Error() != "subtraction overflow" {
		t.Fatalf("expected subtraction overflow, got %v", err)
	}

	sum, err := AddInt256(big.NewInt(-10), big.NewInt(25))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Int64() != 15 {
		t.Fatalf("expected 15, got %s", sum)
	}
}

func TestUint256Bounds(t *testing.T) {
	t.Parallel()

	if _, err := AddUint256(MaxUint256, big.NewInt(1)); err == nil {
		t.Fatal("expected overflow")
	}

	if _, err := SubUint256(big.NewInt(1), big.NewInt(2)); err == nil {
		t.Fatal("expected underflow")
	}

	if _, err := IncUint64(^uint64(0)); err == nil {
		t.Fatal("expected uint64 overflow")
	}

	if b := Uint64Bytes(1); len(b) != 32 || b[31] != 1 {
		t.Fatalf("unexpected encoding %x", b)
	}
}
