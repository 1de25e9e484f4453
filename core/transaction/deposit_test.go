package transaction

import (
	"math/big"
	"testing"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/types"
)

func TestDeposit(t *testing.T) {
	t.Parallel()

	s := getState()
	fund(s, aliceAddress, 1000)

	requireCode(t, run(s, aliceAddress, &DepositData{Amount: "0"}, genesisTime), code.ZeroDeposit)
	requireCode(t, run(s, aliceAddress, &DepositData{Amount: "-1"}, genesisTime), code.InvalidAmount)
	requireCode(t, run(s, aliceAddress, &DepositData{Amount: "1001"}, genesisTime), code.InsufficientAllowance)

	for nonce := uint64(1); nonce <= 3; nonce++ {
		response := mustRun(t, s, aliceAddress, &DepositData{Amount: "100"}, genesisTime)
		deposit := response.Events[0].(*events.DepositEvent)
		if deposit.Nonce != nonce || deposit.Depositor != aliceAddress || deposit.Amount != "100" {
			t.Fatalf("invalid deposit event %+v", deposit)
		}
		if string(response.Data) != u64(nonce) {
			t.Fatalf("expected nonce %d in response data, got %s", nonce, response.Data)
		}
	}

	if s.App.GetDepositNonce() != 3 {
		t.Fatalf("invalid deposit nonce %d", s.App.GetDepositNonce())
	}
	if s.Assets.GetBalance(assets.CustodyAddress).Cmp(big.NewInt(300)) != 0 {
		t.Fatal("funds were not moved into custody")
	}
	if pending := s.Deposits.Get(2); pending == nil || pending.Depositor != aliceAddress {
		t.Fatal("pending deposit was not stored")
	}
}

func TestDepositNonceOverflow(t *testing.T) {
	t.Parallel()

	s := getState()
	fund(s, aliceAddress, 1000)
	s.App.SetDepositNonce(^uint64(0))

	requireCode(t, run(s, aliceAddress, &DepositData{Amount: "1"}, genesisTime), code.DepositNonceOverflow)
	if s.Assets.GetBalance(aliceAddress).Int64() != 1000 {
		t.Fatal("funds must not move when the nonce overflows")
	}
}

func TestRefundPendingDeposit(t *testing.T) {
	t.Parallel()

	s := getState()
	fund(s, aliceAddress, 1000)

	for i := 0; i < 3; i++ {
		mustRun(t, s, aliceAddress, &DepositData{Amount: "100"}, genesisTime)
	}

	active := genesisTime.Add(time.Duration(types.DefaultFallbackDelay) * time.Second)

	requireCode(t, run(s, aliceAddress, &RefundPendingDepositData{Nonce: 1}, active.Add(-time.Second)), code.FallbackMechanismIdle)
	requireCode(t, run(s, bobAddress, &RefundPendingDepositData{Nonce: 1}, active), code.NotOwnerOfDeposit)
	requireCode(t, run(s, aliceAddress, &RefundPendingDepositData{Nonce: 4}, active), code.DepositNotFound)

	// out of order, by depositor and by owner
	mustRun(t, s, aliceAddress, &RefundPendingDepositData{Nonce: 2}, active)
	response := mustRun(t, s, ownerAddress, &RefundPendingDepositData{Nonce: 1}, active)

	refund := response.Events[0].(*events.PendingDepositRefundEvent)
	if refund.DepositorAddress != aliceAddress || refund.Amount != "100" || refund.Nonce != 1 {
		t.Fatalf("invalid refund event %+v", refund)
	}

	requireCode(t, run(s, aliceAddress, &RefundPendingDepositData{Nonce: 2}, active), code.DepositNotFound)

	if s.Assets.GetBalance(aliceAddress).Int64() != 900 {
		t.Fatalf("invalid balance %s", s.Assets.GetBalance(aliceAddress))
	}
}

func TestFinalizedDepositCannotBeRefunded(t *testing.T) {
	t.Parallel()

	s := getState()
	fund(s, aliceAddress, 1000)
	mustRun(t, s, aliceAddress, &DepositData{Amount: "100"}, genesisTime)
	mustRun(t, s, aliceAddress, &DepositData{Amount: "100"}, genesisTime)

	mustRun(t, s, fallbackAddress, &SetFallbackRootData{Root: types.HexToHash("0x01"), MaxDepositIncluded: 1}, genesisTime)

	active := genesisTime.Add(time.Duration(types.DefaultFallbackDelay) * time.Second)
	requireCode(t, run(s, aliceAddress, &RefundPendingDepositData{Nonce: 1}, active), code.DepositNotFound)
	mustRun(t, s, aliceAddress, &RefundPendingDepositData{Nonce: 2}, active)
}
