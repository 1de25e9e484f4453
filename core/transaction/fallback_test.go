package transaction

import (
	"math/big"
	"testing"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/merkle"
	"github.com/flexa/capacity-smart-contracts/types"
)

var weekLater = genesisTime.Add(time.Duration(types.DefaultFallbackDelay) * time.Second)

// publishFallback sets a fallback root over the lifetime limits and returns the proofs.
func publishFallback(t *testing.T, s *state.State, now time.Time, maxDeposit uint64, limits map[types.Address]int64, order ...types.Address) map[types.Address][]types.Hash {
	t.Helper()

	hashes := make([]types.Hash, len(order))
	for i, address := range order {
		hashes[i] = merkle.FallbackLeaf(address, big.NewInt(limits[address]))
	}

	mustRun(t, s, fallbackAddress, &SetFallbackRootData{Root: merkle.Root(hashes), MaxDepositIncluded: maxDeposit}, now)

	proofs := map[types.Address][]types.Hash{}
	for i, address := range order {
		proofs[address] = merkle.Proof(hashes, i)
	}
	return proofs
}

func TestSetFallbackRoot(t *testing.T) {
	t.Parallel()

	s := getState()
	fund(s, aliceAddress, 1000)
	for i := 0; i < 3; i++ {
		mustRun(t, s, aliceAddress, &DepositData{Amount: "10"}, genesisTime)
	}

	now := genesisTime.Add(time.Hour)

	requireCode(t, run(s, aliceAddress, &SetFallbackRootData{Root: rootA, MaxDepositIncluded: 1}, now), code.NotAuthorized)
	requireCode(t, run(s, fallbackAddress, &SetFallbackRootData{Root: types.Hash{}, MaxDepositIncluded: 1}, now), code.ZeroRoot)
	requireCode(t, run(s, fallbackAddress, &SetFallbackRootData{Root: rootA, MaxDepositIncluded: 4}, now), code.FutureDeposits)

	response := mustRun(t, s, fallbackAddress, &SetFallbackRootData{Root: rootA, MaxDepositIncluded: 2}, now)
	set := response.Events[0].(*events.FallbackRootHashSetEvent)
	if set.RootHash != rootA || set.MaxDepositNonceIncluded != 2 || set.SetDate != now.Unix() {
		t.Fatalf("invalid event %+v", set)
	}

	if s.Deposits.Get(1) != nil || s.Deposits.Get(2) != nil || s.Deposits.Get(3) == nil {
		t.Fatal("deposits up to the ceiling must be finalized")
	}
	if s.Fallback.SetDate() != now.Unix() || s.Fallback.Root() != rootA {
		t.Fatal("fallback was not updated")
	}

	response = run(s, ownerAddress, &SetFallbackRootData{Root: rootB, MaxDepositIncluded: 1}, now)
	requireCode(t, response, code.MaxDepositDecreased)
	if response.Log != "Max deposit included must remain the same or increase" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	mustRun(t, s, ownerAddress, &SetFallbackRootData{Root: rootB, MaxDepositIncluded: 2}, now)

	active := now.Add(time.Duration(types.DefaultFallbackDelay) * time.Second)
	response = run(s, ownerAddress, &SetFallbackRootData{Root: rootC, MaxDepositIncluded: 3}, active)
	requireCode(t, response, code.FallbackMechanismActive)
	if response.Log != "Cannot set fallback root while fallback mechanism is active" {
		t.Fatalf("unexpected log %q", response.Log)
	}
}

func TestResetFallbackDate(t *testing.T) {
	t.Parallel()

	s := getState()

	requireCode(t, run(s, publisherAddress, &ResetFallbackDateData{}, weekLater), code.NotAuthorized)

	response := mustRun(t, s, fallbackAddress, &ResetFallbackDateData{}, weekLater)
	if response.Events[0].(*events.FallbackMechanismDateResetEvent).NewDate != weekLater.Unix() {
		t.Fatal("invalid event")
	}

	if s.Fallback.IsActive(weekLater) {
		t.Fatal("reset must deactivate the fallback mechanism")
	}
}

func TestWithdrawFallback(t *testing.T) {
	t.Parallel()

	s := getFundedState(0)
	limits := map[types.Address]int64{aliceAddress: 300, bobAddress: 70}
	proofs := publishFallback(t, s, genesisTime, 0, limits, aliceAddress, bobAddress)

	data := &WithdrawFallbackData{Account: aliceAddress, MaxCumulative: "300", Proof: proofs[aliceAddress]}

	response := run(s, aliceAddress, data, weekLater.Add(-time.Second))
	requireCode(t, response, code.FallbackMechanismIdle)
	if response.Log != "Fallback withdrawal period is not active" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	requireCode(t, run(s, bobAddress, data, weekLater), code.NotAuthorized)
	requireCode(t, run(s, aliceAddress, &WithdrawFallbackData{Account: aliceAddress, MaxCumulative: "301", Proof: proofs[aliceAddress]}, weekLater), code.RootHashUnauthorized)
	requireCode(t, run(s, aliceAddress, &WithdrawFallbackData{Account: aliceAddress, MaxCumulative: "300", Proof: proofs[bobAddress]}, weekLater), code.RootHashUnauthorized)

	response = mustRun(t, s, aliceAddress, data, weekLater)
	withdrawal := response.Events[0].(*events.FallbackWithdrawalEvent)
	if withdrawal.ToAddress != aliceAddress || withdrawal.Amount != "300" {
		t.Fatalf("invalid event %+v", withdrawal)
	}

	response = run(s, aliceAddress, data, weekLater)
	requireCode(t, response, code.LifetimeLimitReached)
	if response.Log != "Withdrawal not permitted when amount withdrawn is at lifetime withdrawal limit" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	// owner may force, the budget is not involved
	mustRun(t, s, ownerAddress, &WithdrawFallbackData{Account: bobAddress, MaxCumulative: "70", Proof: proofs[bobAddress]}, weekLater)
	if s.App.GetBudget().Sign() != 0 || s.Assets.GetBalance(bobAddress).Int64() != 70 {
		t.Fatal("invalid fallback payout")
	}
}

func TestWithdrawFallbackPaysDifference(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	regular := publish(t, s, 1, leaf{aliceAddress, 100, 0})
	mustRun(t, s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: regular[0]}, genesisTime)

	publish(t, s, 2, leaf{bobAddress, 1, 0})
	proofs := publishFallback(t, s, genesisTime, 0, map[types.Address]int64{aliceAddress: 250}, aliceAddress)

	response := mustRun(t, s, aliceAddress, &WithdrawFallbackData{Account: aliceAddress, MaxCumulative: "250", Proof: proofs[aliceAddress]}, weekLater)
	if response.Events[0].(*events.FallbackWithdrawalEvent).Amount != "150" {
		t.Fatal("payout must be the difference to the lifetime limit")
	}

	if s.Accounts.GetCumulativeWithdrawn(aliceAddress).Int64() != 250 || s.Accounts.GetProgress(aliceAddress) != 2 {
		t.Fatal("fallback withdrawal must settle to the max generation")
	}
}

func TestRegularWithdrawalAfterFallback(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	regular := publish(t, s, 1, leaf{aliceAddress, 300, 0})
	proofs := publishFallback(t, s, genesisTime, 0, map[types.Address]int64{aliceAddress: 300}, aliceAddress)

	mustRun(t, s, aliceAddress, &WithdrawFallbackData{Account: aliceAddress, MaxCumulative: "300", Proof: proofs[aliceAddress]}, weekLater)

	// honest account nonce
	requireCode(t, run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "300", Proof: regular[0]}, weekLater), code.AccountNonceExceeded)
	// dishonest account nonce
	requireCode(t, run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "300", AccountNonce: 1, Proof: regular[0]}, weekLater), code.RootHashUnauthorized)
}

func TestApprove(t *testing.T) {
	t.Parallel()

	s := getState()

	requireCode(t, run(s, aliceAddress, &ApproveData{Amount: "-1"}, genesisTime), code.InvalidAmount)

	response := mustRun(t, s, aliceAddress, &ApproveData{Amount: "25"}, genesisTime)
	if response.Events[0].(*events.ApprovalEvent).Owner != aliceAddress {
		t.Fatal("invalid event")
	}
	if s.Assets.GetAllowance(aliceAddress).Int64() != 25 {
		t.Fatal("allowance was not set")
	}
}
