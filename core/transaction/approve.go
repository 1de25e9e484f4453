package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
)

// ApproveData sets how much of the sender's built-in asset the ledger may pull on deposit.
type ApproveData struct {
	Amount string
}

func (data ApproveData) TxType() TxType {
	return TypeApprove
}

func (data ApproveData) String() string {
	return fmt.Sprintf("APPROVE amount:%s", data.Amount)
}

func (data ApproveData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	_, response := parseAmount(data.Amount)
	return response
}

func (data ApproveData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	sender, _ := tx.Sender()
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		amount, _ := parseAmount(data.Amount)
		deliverState.Assets.Approve(sender, amount)
		evs = events.Events{&events.ApprovalEvent{Owner: sender, Amount: amount.String()}}
	}

	return Response{Code: code.OK, Events: evs}
}
