package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/types"
)

// RenounceAuthorizationData moves the account's progress to the newest generation, voiding
// every regular authorization published so far.
type RenounceAuthorizationData struct {
	Account types.Address
}

func (data RenounceAuthorizationData) TxType() TxType {
	return TypeRenounceAuthorization
}

func (data RenounceAuthorizationData) String() string {
	return fmt.Sprintf("RENOUNCE WITHDRAWAL AUTHORIZATION account:%s", data.Account.String())
}

func (data RenounceAuthorizationData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner, withdrawal publisher, and address in question can renounce a withdrawal authorization",
		account(data.Account), owner(context), withdrawalPublisher(context)); response != nil {
		return response
	}

	if context.Accounts().GetProgress(data.Account) >= context.App().GetMaxGeneration() {
		return newResponse(code.NothingToRenounce, "Address nonce indicates there are no funds withdrawable",
			code.NewSimple(code.NothingToRenounce))
	}

	return nil
}

func (data RenounceAuthorizationData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Accounts.SetProgress(data.Account, deliverState.App.GetMaxGeneration())
		evs = events.Events{&events.RenounceWithdrawalAuthorizationEvent{ForAddress: data.Account}}
	}

	return Response{Code: code.OK, Events: evs}
}
