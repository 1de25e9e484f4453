package state

import (
	"math/big"
	"testing"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/stretchr/testify/require"
	db "github.com/tendermint/tm-db"
)

func testAppState() types.AppState {
	candidate := types.HexToAddress("0x05")
	state := types.AppState{
		Owner:               types.HexToAddress("0x01"),
		CandidateOwner:      &candidate,
		WithdrawalPublisher: types.HexToAddress("0x02"),
		FallbackPublisher:   types.HexToAddress("0x03"),
		LimitPublisher:      types.HexToAddress("0x04"),
		DepositNonce:        4,
		MaxGeneration:       2,
		Budget:              "-1000",
		FallbackRoot:        types.HexToHash("0xfb"),
		FallbackSetDate:     1564352876,
		FallbackDelay:       types.DefaultFallbackDelay,
		PendingDeposits: []types.PendingDeposit{
			{Nonce: 3, Depositor: types.HexToAddress("0x10"), Amount: "30"},
			{Nonce: 4, Depositor: types.HexToAddress("0x11"), Amount: "40"},
		},
		WithdrawalRoots: []types.WithdrawalRoot{
			{Root: types.HexToHash("0xa1"), Generation: 1},
			{Root: types.HexToHash("0xa2"), Generation: 2},
		},
		Accounts: []types.Account{
			{Address: types.HexToAddress("0x10"), Progress: 1, CumulativeWithdrawn: "7", TxNonce: 3},
		},
		Balances: []types.Balance{
			{Address: types.HexToAddress("0x10"), Balance: "100", Allowance: "50"},
			{Address: assets.CustodyAddress, Balance: "70", Allowance: "0"},
		},
	}
	state.FallbackMaxDepositIncluded = 2
	return state
}

func TestStateExport(t *testing.T) {
	t.Parallel()

	memDB := db.NewMemDB()
	state, err := NewState(0, memDB, nil, 1024, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	appState := testAppState()
	if err := state.Import(appState, time.Time{}); err != nil {
		t.Fatal(err)
	}

	if _, err := state.Commit(); err != nil {
		t.Fatal(err)
	}

	exported := state.Export()
	require.Equal(t, appState, exported)

	if state.Height() != 1 {
		t.Fatalf("height is not 1, got %d", state.Height())
	}
}

func TestStateImportDefaultsFallbackSetDate(t *testing.T) {
	t.Parallel()

	state, err := NewState(0, db.NewMemDB(), nil, 1024, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	genesisTime := time.Unix(1700000000, 0)
	appState := testAppState()
	appState.FallbackSetDate = 0
	require.NoError(t, state.Import(appState, genesisTime))

	require.Equal(t, genesisTime.Unix(), state.Fallback.SetDate())
	require.False(t, state.Fallback.IsActive(genesisTime))
	require.True(t, state.Fallback.IsActive(genesisTime.Add(time.Duration(types.DefaultFallbackDelay)*time.Second)))
}

func TestStateImportRejectsInvalid(t *testing.T) {
	t.Parallel()

	state, err := NewState(0, db.NewMemDB(), nil, 1024, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	appState := testAppState()
	appState.FallbackDelay = 0
	if err := state.Import(appState, time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStateReloadAtHeight(t *testing.T) {
	t.Parallel()

	memDB := db.NewMemDB()
	state, err := NewState(0, memDB, nil, 1024, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := state.Import(testAppState(), time.Time{}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.Commit(); err != nil {
		t.Fatal(err)
	}

	state.App.SetBudget(big.NewInt(5))
	state.Deposits.DeleteRange(2, 4)
	state.Fallback.SetDelay(10)
	hash, err := state.Commit()
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewState(2, memDB, nil, 1024, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(reloaded.Tree().Hash()) != string(hash) {
		t.Fatal("app hash mismatch after reload")
	}

	check := NewCheckState(reloaded)
	if check.App().GetBudget().Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("unexpected budget %s", check.App().GetBudget())
	}
	if check.Deposits().Get(3) != nil || check.Deposits().Get(4) != nil {
		t.Fatal("deposits must be finalized")
	}
	if check.Fallback().Delay() != 10 {
		t.Fatal("unexpected delay")
	}
	if check.Roots().GetGeneration(types.HexToHash("0xa2")) != 2 {
		t.Fatal("unexpected root generation")
	}

	old, err := NewCheckStateAtHeight(1, memDB)
	if err != nil {
		t.Fatal(err)
	}
	if old.App().GetBudget().Cmp(big.NewInt(-1000)) != 0 {
		t.Fatal("version 1 must keep the old budget")
	}
}
