package transaction

import (
	"math/big"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

// settlement is the bookkeeping shared by the regular and the fallback withdrawal paths. It is
// computed before any transfer and applied after it.
type settlement struct {
	account    types.Address
	generation uint64
	cumulative *big.Int
}

func prepareSettlement(context *state.CheckState, account types.Address, amount *big.Int, generation uint64) (*settlement, *Response) {
	withdrawn := context.Accounts().GetCumulativeWithdrawn(account)
	cumulative, err := helpers.AddUint256(withdrawn, amount)
	if err != nil {
		return nil, newResponse(code.CumulativeOverflow, "SafeMath: addition overflow",
			code.NewArithmetic(code.CumulativeOverflow, withdrawn.String(), amount.String()))
	}

	return &settlement{account: account, generation: generation, cumulative: cumulative}, nil
}

func (s *settlement) apply(deliverState *state.State) {
	deliverState.Accounts.SetProgress(s.account, s.generation)
	deliverState.Accounts.SetCumulativeWithdrawn(s.account, s.cumulative)
}
