package types

import (
	"fmt"
	"math/big"

	"github.com/flexa/capacity-smart-contracts/helpers"
)

// DefaultFallbackDelay is one week in seconds.
const DefaultFallbackDelay uint64 = 604800

// AppState is the genesis document of the ledger and the result of an export.
type AppState struct {
	Owner               Address  `json:"owner"`
	CandidateOwner      *Address `json:"candidate_owner,omitempty"`
	WithdrawalPublisher Address  `json:"withdrawal_publisher"`
	FallbackPublisher   Address  `json:"fallback_publisher"`
	LimitPublisher      Address  `json:"limit_publisher"`

	DepositNonce  uint64 `json:"deposit_nonce"`
	MaxGeneration uint64 `json:"max_generation"`
	Budget        string `json:"budget"`

	FallbackRoot               Hash   `json:"fallback_root"`
	FallbackMaxDepositIncluded uint64 `json:"fallback_max_deposit_included"`
	FallbackSetDate            int64  `json:"fallback_set_date"`
	FallbackDelay              uint64 `json:"fallback_delay"`

	PendingDeposits []PendingDeposit `json:"pending_deposits,omitempty"`
	WithdrawalRoots []WithdrawalRoot `json:"withdrawal_roots,omitempty"`
	Accounts        []Account        `json:"accounts,omitempty"`
	Balances        []Balance        `json:"balances,omitempty"`
}

type PendingDeposit struct {
	Nonce     uint64  `json:"nonce"`
	Depositor Address `json:"depositor"`
	Amount    string  `json:"amount"`
}

type WithdrawalRoot struct {
	Root       Hash   `json:"root"`
	Generation uint64 `json:"generation"`
}

type Account struct {
	Address             Address `json:"address"`
	Progress            uint64  `json:"progress"`
	CumulativeWithdrawn string  `json:"cumulative_withdrawn"`
	TxNonce             uint64  `json:"tx_nonce"`
}

// Balance is an entry of the built-in asset.
type Balance struct {
	Address   Address `json:"address"`
	Balance   string  `json:"balance"`
	Allowance string  `json:"allowance"`
}

func (s *AppState) Verify() error {
	if s.Owner.IsZero() {
		return fmt.Errorf("owner is not set")
	}

	if s.FallbackDelay == 0 {
		return fmt.Errorf("fallback delay may not be 0")
	}

	budget, ok := new(big.Int).SetString(s.Budget, 10)
	if !ok || !helpers.IsInt256(budget) {
		return fmt.Errorf("budget is not a valid int256")
	}

	if s.FallbackMaxDepositIncluded > s.DepositNonce {
		return fmt.Errorf("fallback includes deposit %d beyond deposit nonce %d", s.FallbackMaxDepositIncluded, s.DepositNonce)
	}

	deposits := map[uint64]struct{}{}
	for _, deposit := range s.PendingDeposits {
		if _, exists := deposits[deposit.Nonce]; exists {
			return fmt.Errorf("duplicated pending deposit %d", deposit.Nonce)
		}
		deposits[deposit.Nonce] = struct{}{}

		if deposit.Nonce <= s.FallbackMaxDepositIncluded || deposit.Nonce > s.DepositNonce {
			return fmt.Errorf("pending deposit %d is outside of (%d, %d]", deposit.Nonce, s.FallbackMaxDepositIncluded, s.DepositNonce)
		}

		if !isPositiveUint256(deposit.Amount) {
			return fmt.Errorf("not valid amount of pending deposit %d", deposit.Nonce)
		}
	}

	roots := map[Hash]struct{}{}
	for _, root := range s.WithdrawalRoots {
		if root.Root.IsZero() {
			return fmt.Errorf("withdrawal root may not be 0")
		}
		if _, exists := roots[root.Root]; exists {
			return fmt.Errorf("duplicated withdrawal root %s", root.Root.String())
		}
		roots[root.Root] = struct{}{}

		if root.Generation == 0 || root.Generation > s.MaxGeneration {
			return fmt.Errorf("withdrawal root %s has generation %d outside of [1, %d]", root.Root.String(), root.Generation, s.MaxGeneration)
		}
	}

	accounts := map[Address]struct{}{}
	for _, acc := range s.Accounts {
		if _, exists := accounts[acc.Address]; exists {
			return fmt.Errorf("duplicated account %s", acc.Address.String())
		}
		accounts[acc.Address] = struct{}{}

		if acc.Progress > s.MaxGeneration {
			return fmt.Errorf("progress of account %s is above max generation", acc.Address.String())
		}

		if !isUint256(acc.CumulativeWithdrawn) {
			return fmt.Errorf("not valid cumulative withdrawn for account %s", acc.Address.String())
		}
	}

	balances := map[Address]struct{}{}
	for _, bal := range s.Balances {
		if _, exists := balances[bal.Address]; exists {
			return fmt.Errorf("duplicated balance %s", bal.Address.String())
		}
		balances[bal.Address] = struct{}{}

		if !isUint256(bal.Balance) || !isUint256(bal.Allowance) {
			return fmt.Errorf("not valid balance for account %s", bal.Address.String())
		}
	}

	return nil
}

func isUint256(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && helpers.IsUint256(v)
}

func isPositiveUint256(s string) bool {
	v, ok := new(big.Int).SetString(s, 10)
	return ok && v.Sign() > 0 && helpers.IsUint256(v)
}
