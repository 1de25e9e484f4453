package transaction

import (
	"fmt"
	"math/big"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/merkle"
	"github.com/flexa/capacity-smart-contracts/types"
)

// WithdrawFallbackData pays out the difference between the account's lifetime limit in the
// fallback root and what it has withdrawn so far.
type WithdrawFallbackData struct {
	Account       types.Address
	MaxCumulative string
	Proof         []types.Hash
}

type fallbackWithdrawal struct {
	payout     *big.Int
	settlement *settlement
}

func (data WithdrawFallbackData) TxType() TxType {
	return TypeWithdrawFallback
}

func (data WithdrawFallbackData) String() string {
	return fmt.Sprintf("WITHDRAW FALLBACK account:%s max cumulative:%s", data.Account.String(), data.MaxCumulative)
}

func (data WithdrawFallbackData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	_, response := data.verify(tx, context, env)
	return response
}

func (data WithdrawFallbackData) verify(tx *Transaction, context *state.CheckState, env *Env) (*fallbackWithdrawal, *Response) {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner or recipient can execute a fallback withdrawal",
		account(data.Account), owner(context)); response != nil {
		return nil, response
	}

	fb := context.Fallback()
	if !fb.IsActive(env.Time) {
		return nil, fallbackStateResponse(code.FallbackMechanismIdle, "Fallback withdrawal period is not active", fb)
	}

	maxCumulative, response := parseAmount(data.MaxCumulative)
	if response != nil {
		return nil, response
	}

	root := merkle.Fold(merkle.FallbackLeaf(data.Account, maxCumulative), data.Proof)
	if root != fb.Root() {
		return nil, newResponse(code.RootHashUnauthorized, "Root hash unauthorized", code.NewRootHashUnauthorized(root.String()))
	}

	withdrawn := context.Accounts().GetCumulativeWithdrawn(data.Account)
	if maxCumulative.Cmp(withdrawn) <= 0 {
		return nil, newResponse(code.LifetimeLimitReached, "Withdrawal not permitted when amount withdrawn is at lifetime withdrawal limit",
			code.NewLifetimeLimitReached(data.Account.String(), withdrawn.String(), maxCumulative.String()))
	}

	payout := new(big.Int).Sub(maxCumulative, withdrawn)
	settlement, response := prepareSettlement(context, data.Account, payout, context.App().GetMaxGeneration())
	if response != nil {
		return nil, response
	}

	return &fallbackWithdrawal{payout: payout, settlement: settlement}, nil
}

func (data WithdrawFallbackData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	w, response := data.verify(tx, checkState, env)
	if response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		if env.Assets != nil {
			if err := env.Assets.Push(data.Account, w.payout); err != nil {
				return transferFailed(err, data.Account, w.payout)
			}
		}

		w.settlement.apply(deliverState)

		evs = events.Events{&events.FallbackWithdrawalEvent{ToAddress: data.Account, Amount: w.payout.String()}}
	}

	return Response{Code: code.OK, Events: evs}
}
