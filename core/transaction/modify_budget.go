package transaction

import (
	"fmt"
	"math/big"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
)

// ModifyBudgetData adds a signed delta to the immediately withdrawable limit.
type ModifyBudgetData struct {
	Delta string
}

func (data ModifyBudgetData) TxType() TxType {
	return TypeModifyBudget
}

func (data ModifyBudgetData) String() string {
	return fmt.Sprintf("MODIFY BUDGET delta:%s", data.Delta)
}

func (data ModifyBudgetData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	_, response := data.newBudget(tx, context)
	return response
}

func (data ModifyBudgetData) newBudget(tx *Transaction, context *state.CheckState) (*big.Int, *Response) {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the immediately withdrawable limit publisher and owner can modify the immediately withdrawable limit",
		limitPublisher(context), owner(context)); response != nil {
		return nil, response
	}

	delta, ok := new(big.Int).SetString(data.Delta, 10)
	if !ok || !helpers.IsInt256(delta) {
		return nil, &Response{
			Code: code.InvalidAmount,
			Log:  fmt.Sprintf("Delta %q is not a valid int256", data.Delta),
			Info: EncodeError(code.NewSimple(code.InvalidAmount)),
		}
	}

	budget := context.App().GetBudget()
	result, err := helpers.AddInt256(budget, delta)
	if err != nil {
		c := code.BudgetOverflow
		if delta.Sign() < 0 {
			c = code.BudgetUnderflow
		}
		return nil, newResponse(c, "SafeMath: "+err.Error(), code.NewArithmetic(c, budget.String(), delta.String()))
	}

	return result, nil
}

func (data ModifyBudgetData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	budget, response := data.newBudget(tx, checkState)
	if response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		old := deliverState.App.GetBudget()
		deliverState.App.SetBudget(budget)
		evs = events.Events{&events.ImmediatelyWithdrawableLimitUpdateEvent{OldValue: old.String(), NewValue: budget.String()}}
	}

	return Response{Code: code.OK, Events: evs}
}
