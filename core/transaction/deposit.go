package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
)

type DepositData struct {
	Amount string
}

func (data DepositData) TxType() TxType {
	return TypeDeposit
}

func (data DepositData) String() string {
	return fmt.Sprintf("DEPOSIT amount:%s", data.Amount)
}

func (data DepositData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	amount, response := parseAmount(data.Amount)
	if response != nil {
		return response
	}

	if amount.Sign() == 0 {
		return newResponse(code.ZeroDeposit, "Cannot deposit 0", code.NewSimple(code.ZeroDeposit))
	}

	depositNonce := context.App().GetDepositNonce()
	if _, err := helpers.IncUint64(depositNonce); err != nil {
		return newResponse(code.DepositNonceOverflow, "SafeMath: addition overflow",
			code.NewArithmetic(code.DepositNonceOverflow, u64(depositNonce), "1"))
	}

	return nil
}

func (data DepositData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	sender, _ := tx.Sender()
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	amount, _ := parseAmount(data.Amount)

	var evs events.Events
	var nonce uint64
	if deliverState, ok := context.(*state.State); ok {
		if env.Assets != nil {
			if err := env.Assets.Pull(sender, amount); err != nil {
				return transferFailed(err, sender, amount)
			}
		}

		nonce = deliverState.App.GetDepositNonce() + 1
		deliverState.App.SetDepositNonce(nonce)
		deliverState.Deposits.Create(nonce, sender, amount)

		evs = events.Events{&events.DepositEvent{Depositor: sender, Amount: amount.String(), Nonce: nonce}}
	}

	return Response{Code: code.OK, Data: []byte(u64(nonce)), Events: evs}
}
