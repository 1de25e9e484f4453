package transaction

import (
	"fmt"
	"math/big"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/merkle"
	"github.com/flexa/capacity-smart-contracts/types"
)

// WithdrawData pays out a leaf of a registered withdrawal root.
type WithdrawData struct {
	Account      types.Address
	Amount       string
	AccountNonce uint64
	Proof        []types.Hash
}

type withdrawal struct {
	amount     *big.Int
	generation uint64
	budget     *big.Int
	settlement *settlement
}

func (data WithdrawData) TxType() TxType {
	return TypeWithdraw
}

func (data WithdrawData) String() string {
	return fmt.Sprintf("WITHDRAW account:%s amount:%s account nonce:%d", data.Account.String(), data.Amount, data.AccountNonce)
}

func (data WithdrawData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	_, response := data.verify(tx, context)
	return response
}

func (data WithdrawData) verify(tx *Transaction, context *state.CheckState) (*withdrawal, *Response) {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner or recipient can execute a withdrawal",
		account(data.Account), owner(context)); response != nil {
		return nil, response
	}

	progress := context.Accounts().GetProgress(data.Account)
	if progress > data.AccountNonce {
		return nil, newResponse(code.AccountNonceExceeded, "Account nonce in contract exceeds provided max authorized withdrawal nonce for this account",
			code.NewAccountNonceExceeded(data.Account.String(), u64(progress), u64(data.AccountNonce)))
	}

	amount, response := parseAmount(data.Amount)
	if response != nil {
		return nil, response
	}

	budget := context.App().GetBudget()
	if amount.Cmp(budget) > 0 {
		return nil, newResponse(code.OverBudget, "Withdrawal would push contract over its immediately withdrawable limit",
			code.NewOverBudget(budget.String(), amount.String()))
	}

	root := merkle.Fold(merkle.WithdrawalLeaf(data.Account, amount, data.AccountNonce), data.Proof)
	generation := context.Roots().GetGeneration(root)
	if generation == 0 {
		return nil, newResponse(code.RootHashUnauthorized, "Root hash unauthorized",
			code.NewRootHashUnauthorized(root.String()))
	}

	if generation <= data.AccountNonce {
		return nil, newResponse(code.NonceNotAuthorized, "Encoded nonce not greater than max last authorized nonce for this account",
			code.NewNonceNotAuthorized(data.Account.String(), u64(generation), u64(data.AccountNonce)))
	}

	newBudget, err := helpers.AddInt256(budget, new(big.Int).Neg(amount))
	if err != nil {
		return nil, newResponse(code.BudgetUnderflow, "SafeMath: "+err.Error(),
			code.NewArithmetic(code.BudgetUnderflow, budget.String(), "-"+amount.String()))
	}

	settlement, response := prepareSettlement(context, data.Account, amount, generation)
	if response != nil {
		return nil, response
	}

	return &withdrawal{amount: amount, generation: generation, budget: newBudget, settlement: settlement}, nil
}

func (data WithdrawData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	w, response := data.verify(tx, checkState)
	if response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		if env.Assets != nil {
			if err := env.Assets.Push(data.Account, w.amount); err != nil {
				return transferFailed(err, data.Account, w.amount)
			}
		}

		deliverState.App.SetBudget(w.budget)
		w.settlement.apply(deliverState)

		evs = events.Events{&events.WithdrawalEvent{
			ToAddress:              data.Account,
			Amount:                 w.amount.String(),
			RootNonce:              w.generation,
			AuthorizedAccountNonce: data.AccountNonce,
		}}
	}

	return Response{Code: code.OK, Events: evs}
}
