package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/types"
)

type RemoveWithdrawalRootsData struct {
	Roots []types.Hash
}

func (data RemoveWithdrawalRootsData) TxType() TxType {
	return TypeRemoveWithdrawalRoots
}

func (data RemoveWithdrawalRootsData) String() string {
	return fmt.Sprintf("REMOVE WITHDRAWAL ROOTS count:%d", len(data.Roots))
}

func (data RemoveWithdrawalRootsData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	return checkRoles(sender, "Only the owner and withdrawal publisher can remove withdrawal root hashes",
		owner(context), withdrawalPublisher(context))
}

func (data RemoveWithdrawalRootsData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		evs = removeRoots(deliverState, data.Roots)
	}

	return Response{Code: code.OK, Events: evs}
}
