package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressHex(t *testing.T) {
	t.Parallel()

	address := HexToAddress("0x369CCCb3bF65a6D44C2CE65CAC45Bc02D4052Aa2")
	if address.String() != "0x369cccb3bf65a6d44c2ce65cac45bc02d4052aa2" {
		t.Fatalf("unexpected address %s", address)
	}

	if !IsHexAddress("369cccb3bf65a6d44c2ce65cac45bc02d4052aa2") || IsHexAddress("0x369ccc") {
		t.Fatal("IsHexAddress mismatch")
	}

	if _, err := ParseAddress("Mx369cccb3bf65a6d44c2ce65cac45bc02d4052aa2"); err == nil {
		t.Fatal("expected error for foreign prefix")
	}

	if BigToAddress(big.NewInt(4)) != HexToAddress("0x0000000000000000000000000000000000000004") {
		t.Fatal("BigToAddress mismatch")
	}
}

func TestHashCompare(t *testing.T) {
	t.Parallel()

	low := BigToHash(big.NewInt(1))
	high := BigToHash(big.NewInt(256))
	if low.Compare(high) != -1 || high.Compare(low) != 1 || low.Compare(low) != 0 {
		t.Fatal("compare must follow numeric order")
	}

	if !(Hash{}).IsZero() || low.IsZero() {
		t.Fatal("IsZero mismatch")
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type pair struct {
		Address Address `json:"address"`
		Hash    Hash    `json:"hash"`
	}

	in := pair{
		Address: HexToAddress("0x04bea23efb744dc93b4fda4c20bf4a21c6e195f1"),
		Hash:    HexToHash("0x9e13f2f5468dd782b316444fbd66595e13dba7d7bd3efa1becd50b42045f58c6"),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"address":"0x04bea23efb744dc93b4fda4c20bf4a21c6e195f1","hash":"0x9e13f2f5468dd782b316444fbd66595e13dba7d7bd3efa1becd50b42045f58c6"}`, string(data))

	var out pair
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, in, out)

	require.Error(t, json.Unmarshal([]byte(`{"address":"0x04be"}`), &out))
}

func TestAppStateVerify(t *testing.T) {
	t.Parallel()

	valid := func() AppState {
		s := AppState{
			Owner:           HexToAddress("0x01"),
			DepositNonce:    3,
			MaxGeneration:   2,
			Budget:          "-5",
			FallbackDelay:   DefaultFallbackDelay,
			PendingDeposits: []PendingDeposit{{Nonce: 3, Depositor: HexToAddress("0x02"), Amount: "10"}},
			WithdrawalRoots: []WithdrawalRoot{{Root: HexToHash("0x0a"), Generation: 2}},
			Accounts:        []Account{{Address: HexToAddress("0x02"), Progress: 2, CumulativeWithdrawn: "0"}},
			Balances:        []Balance{{Address: HexToAddress("0x02"), Balance: "100", Allowance: "0"}},
		}
		s.FallbackMaxDepositIncluded = 2
		return s
	}

	state := valid()
	require.NoError(t, state.Verify())

	cases := map[string]func(s *AppState){
		"no owner":        func(s *AppState) { s.Owner = Address{} },
		"zero delay":      func(s *AppState) { s.FallbackDelay = 0 },
		"budget":          func(s *AppState) { s.Budget = "x" },
		"future ceiling":  func(s *AppState) { s.FallbackMaxDepositIncluded = 4 },
		"finalized":       func(s *AppState) { s.PendingDeposits[0].Nonce = 2 },
		"zero deposit":    func(s *AppState) { s.PendingDeposits[0].Amount = "0" },
		"zero root":       func(s *AppState) { s.WithdrawalRoots[0].Root = Hash{} },
		"root generation": func(s *AppState) { s.WithdrawalRoots[0].Generation = 3 },
		"progress":        func(s *AppState) { s.Accounts[0].Progress = 3 },
		"duplicate":       func(s *AppState) { s.Balances = append(s.Balances, s.Balances[0]) },
		"negative":        func(s *AppState) { s.Balances[0].Balance = "-1" },
	}

	for name, mutate := range cases {
		state := valid()
		mutate(&state)
		if err := state.Verify(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
