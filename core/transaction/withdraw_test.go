package transaction

import (
	"math/big"
	"testing"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/merkle"
	"github.com/flexa/capacity-smart-contracts/types"
)

type leaf struct {
	account types.Address
	amount  int64
	nonce   uint64
}

// publish registers a withdrawal root over leaves and returns the proof of every leaf.
func publish(t *testing.T, s *state.State, generation uint64, leaves ...leaf) [][]types.Hash {
	t.Helper()

	hashes := make([]types.Hash, len(leaves))
	for i, l := range leaves {
		hashes[i] = merkle.WithdrawalLeaf(l.account, big.NewInt(l.amount), l.nonce)
	}

	mustRun(t, s, publisherAddress, &AddWithdrawalRootData{Root: merkle.Root(hashes), Generation: generation}, genesisTime)

	proofs := make([][]types.Hash, len(leaves))
	for i := range leaves {
		proofs[i] = merkle.Proof(hashes, i)
	}
	return proofs
}

func getFundedState(budget int64) *state.State {
	s := getState()
	s.Assets.SetBalance(assets.CustodyAddress, big.NewInt(100000))
	s.App.SetBudget(big.NewInt(budget))
	return s
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0}, leaf{bobAddress, 50, 0})

	requireCode(t, run(s, bobAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}, genesisTime), code.NotAuthorized)

	response := mustRun(t, s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}, genesisTime)
	withdrawal := response.Events[0].(*events.WithdrawalEvent)
	if withdrawal.ToAddress != aliceAddress || withdrawal.Amount != "100" || withdrawal.RootNonce != 1 || withdrawal.AuthorizedAccountNonce != 0 {
		t.Fatalf("invalid withdrawal event %+v", withdrawal)
	}

	// owner may force a withdrawal
	mustRun(t, s, ownerAddress, &WithdrawData{Account: bobAddress, Amount: "50", Proof: proofs[1]}, genesisTime)

	if s.App.GetBudget().Int64() != 850 {
		t.Fatalf("budget must decrease by the payouts, got %s", s.App.GetBudget())
	}
	if s.Assets.GetBalance(aliceAddress).Int64() != 100 || s.Assets.GetBalance(bobAddress).Int64() != 50 {
		t.Fatal("payouts were not transferred")
	}
	if s.Accounts.GetProgress(aliceAddress) != 1 || s.Accounts.GetCumulativeWithdrawn(aliceAddress).Int64() != 100 {
		t.Fatal("withdrawal was not settled")
	}
}

func TestWithdrawReplay(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0}, leaf{bobAddress, 50, 0})

	data := &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}
	mustRun(t, s, aliceAddress, data, genesisTime)

	response := run(s, aliceAddress, data, genesisTime)
	requireCode(t, response, code.AccountNonceExceeded)
	if response.Log != "Account nonce in contract exceeds provided max authorized withdrawal nonce for this account" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	if s.App.GetBudget().Int64() != 900 || s.Assets.GetBalance(aliceAddress).Int64() != 100 {
		t.Fatal("replay must not mutate state")
	}
}

func TestWithdrawRejections(t *testing.T) {
	t.Parallel()

	s := getFundedState(100)
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0}, leaf{bobAddress, 50, 0})

	cases := []struct {
		name string
		data *WithdrawData
		code uint32
	}{
		{"tampered amount", &WithdrawData{Account: aliceAddress, Amount: "99", Proof: proofs[0]}, code.RootHashUnauthorized},
		{"tampered nonce", &WithdrawData{Account: aliceAddress, Amount: "100", AccountNonce: 1, Proof: proofs[0]}, code.RootHashUnauthorized},
		{"tampered account", &WithdrawData{Account: bobAddress, Amount: "100", Proof: proofs[0]}, code.RootHashUnauthorized},
		{"tampered proof", &WithdrawData{Account: aliceAddress, Amount: "100", Proof: []types.Hash{merkle.Keccak256([]byte("Not the right root"))}}, code.RootHashUnauthorized},
		{"over budget", &WithdrawData{Account: aliceAddress, Amount: "101", Proof: proofs[0]}, code.OverBudget},
		{"invalid amount", &WithdrawData{Account: aliceAddress, Amount: "1e3", Proof: proofs[0]}, code.InvalidAmount},
	}

	for _, c := range cases {
		response := run(s, aliceAddress, c.data, genesisTime)
		if response.Code != c.code {
			t.Fatalf("%s: expected code %d, got %d (%s)", c.name, c.code, response.Code, response.Log)
		}
	}

	if s.App.GetBudget().Int64() != 100 || s.Accounts.GetProgress(aliceAddress) != 0 {
		t.Fatal("rejected withdrawals must not mutate state")
	}
}

func TestWithdrawBudgetIsSharedAcrossAccounts(t *testing.T) {
	t.Parallel()

	s := getFundedState(120)
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0}, leaf{bobAddress, 50, 0})

	mustRun(t, s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}, genesisTime)

	response := run(s, bobAddress, &WithdrawData{Account: bobAddress, Amount: "50", Proof: proofs[1]}, genesisTime)
	requireCode(t, response, code.OverBudget)
	if response.Log != "Withdrawal would push contract over its immediately withdrawable limit" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	mustRun(t, s, limitAddress, &ModifyBudgetData{Delta: "30"}, genesisTime)
	mustRun(t, s, bobAddress, &WithdrawData{Account: bobAddress, Amount: "50", Proof: proofs[1]}, genesisTime)
	if s.App.GetBudget().Sign() != 0 {
		t.Fatalf("budget must be spent, got %s", s.App.GetBudget())
	}
}

func TestWithdrawEncodedNonceNotAuthorized(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	publish(t, s, 1, leaf{aliceAddress, 100, 0})
	proofs := publish(t, s, 2, leaf{aliceAddress, 100, 3})

	response := run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", AccountNonce: 3, Proof: proofs[0]}, genesisTime)
	requireCode(t, response, code.NonceNotAuthorized)
	if response.Log != "Encoded nonce not greater than max last authorized nonce for this account" {
		t.Fatalf("unexpected log %q", response.Log)
	}
}

func TestWithdrawAcrossGenerations(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	first := publish(t, s, 1, leaf{aliceAddress, 100, 0})
	second := publish(t, s, 2, leaf{aliceAddress, 40, 1})

	mustRun(t, s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: first[0]}, genesisTime)
	mustRun(t, s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "40", AccountNonce: 1, Proof: second[0]}, genesisTime)

	requireCode(t, run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "40", AccountNonce: 1, Proof: second[0]}, genesisTime), code.AccountNonceExceeded)

	if s.Accounts.GetProgress(aliceAddress) != 2 || s.Accounts.GetCumulativeWithdrawn(aliceAddress).Int64() != 140 {
		t.Fatal("invalid settlement")
	}
}

func TestWithdrawTransferFailureIsAtomic(t *testing.T) {
	t.Parallel()

	s := getState()
	s.App.SetBudget(big.NewInt(1000))
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0})

	requireCode(t, run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}, genesisTime), code.InsufficientFunds)
	if s.App.GetBudget().Int64() != 1000 || s.Accounts.GetProgress(aliceAddress) != 0 {
		t.Fatal("failed transfer must not mutate state")
	}
}

func TestModifyBudget(t *testing.T) {
	t.Parallel()

	s := getState()

	response := run(s, aliceAddress, &ModifyBudgetData{Delta: "1"}, genesisTime)
	requireCode(t, response, code.NotAuthorized)
	if response.Log != "Only the immediately withdrawable limit publisher and owner can modify the immediately withdrawable limit" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	response = mustRun(t, s, limitAddress, &ModifyBudgetData{Delta: "100"}, genesisTime)
	update := response.Events[0].(*events.ImmediatelyWithdrawableLimitUpdateEvent)
	if update.OldValue != "0" || update.NewValue != "100" {
		t.Fatalf("invalid update %+v", update)
	}

	mustRun(t, s, ownerAddress, &ModifyBudgetData{Delta: "-150"}, genesisTime)
	if s.App.GetBudget().Int64() != -50 {
		t.Fatalf("budget is signed, got %s", s.App.GetBudget())
	}

	requireCode(t, run(s, ownerAddress, &ModifyBudgetData{Delta: "x"}, genesisTime), code.InvalidAmount)
}

func TestModifyBudgetBounds(t *testing.T) {
	t.Parallel()

	s := getState()
	half := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	mustRun(t, s, limitAddress, &ModifyBudgetData{Delta: half.String()}, genesisTime)

	response := run(s, limitAddress, &ModifyBudgetData{Delta: half.String()}, genesisTime)
	requireCode(t, response, code.BudgetOverflow)
	if response.Log != "SafeMath: addition overflow" {
		t.Fatalf("unexpected log %q", response.Log)
	}

	s.App.SetBudget(new(big.Int).Neg(half))
	response = run(s, limitAddress, &ModifyBudgetData{Delta: "-2"}, genesisTime)
	requireCode(t, response, code.BudgetUnderflow)
	if response.Log != "SafeMath: subtraction overflow" {
		t.Fatalf("unexpected log %q", response.Log)
	}
}

func TestRenounceVoidsAuthorization(t *testing.T) {
	t.Parallel()

	s := getFundedState(1000)
	proofs := publish(t, s, 1, leaf{aliceAddress, 100, 0})

	mustRun(t, s, aliceAddress, &RenounceAuthorizationData{Account: aliceAddress}, genesisTime.Add(time.Second))
	requireCode(t, run(s, aliceAddress, &WithdrawData{Account: aliceAddress, Amount: "100", Proof: proofs[0]}, genesisTime), code.AccountNonceExceeded)
}
