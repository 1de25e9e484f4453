package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
)

type RefundPendingDepositData struct {
	Nonce uint64
}

func (data RefundPendingDepositData) TxType() TxType {
	return TypeRefundPendingDeposit
}

func (data RefundPendingDepositData) String() string {
	return fmt.Sprintf("REFUND PENDING DEPOSIT nonce:%d", data.Nonce)
}

func (data RefundPendingDepositData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	if fb := context.Fallback(); !fb.IsActive(env.Time) {
		return fallbackStateResponse(code.FallbackMechanismIdle, "Fallback withdrawal period is not active, so refunds are not permitted", fb)
	}

	deposit := context.Deposits().Get(data.Nonce)
	if deposit == nil {
		return newResponse(code.DepositNotFound, "There is no pending deposit for the specified nonce",
			code.NewDepositNotFound(u64(data.Nonce)))
	}

	if response := checkRoles(sender, "", account(deposit.Depositor), owner(context)); response != nil {
		return newResponse(code.NotOwnerOfDeposit, "Only the owner or depositor can initiate the refund of a pending deposit",
			code.NewNotOwnerOfDeposit(u64(data.Nonce), deposit.Depositor.String(), sender.String()))
	}

	return nil
}

func (data RefundPendingDepositData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		deposit := deliverState.Deposits.Get(data.Nonce)
		amount := deposit.GetAmount()

		if env.Assets != nil {
			if err := env.Assets.Push(deposit.Depositor, amount); err != nil {
				return transferFailed(err, deposit.Depositor, amount)
			}
		}

		deliverState.Deposits.Delete(data.Nonce)

		evs = events.Events{&events.PendingDepositRefundEvent{DepositorAddress: deposit.Depositor, Amount: amount.String(), Nonce: data.Nonce}}
	}

	return Response{Code: code.OK, Events: evs}
}
