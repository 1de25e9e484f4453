package transaction

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/flexa/capacity-smart-contracts/core/asset"
	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/types"
)

// role is an address allowed to run an operation, named for error payloads.
type role struct {
	name    string
	address types.Address
}

func owner(context *state.CheckState) role {
	return role{"owner", context.Roles().Owner()}
}

func withdrawalPublisher(context *state.CheckState) role {
	return role{"withdrawal_publisher", context.Roles().WithdrawalPublisher()}
}

func fallbackPublisher(context *state.CheckState) role {
	return role{"fallback_publisher", context.Roles().FallbackPublisher()}
}

func limitPublisher(context *state.CheckState) role {
	return role{"limit_publisher", context.Roles().LimitPublisher()}
}

func account(address types.Address) role {
	return role{"account", address}
}

// checkRoles rejects senders that hold none of roles. Unassigned roles match nobody.
func checkRoles(sender types.Address, log string, roles ...role) *Response {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if !r.address.IsZero() && r.address == sender {
			return nil
		}
		names = append(names, r.name)
	}

	return &Response{
		Code: code.NotAuthorized,
		Log:  log,
		Info: EncodeError(code.NewNotAuthorized(sender.String(), names...)),
	}
}

func invalidAmount(value string) *Response {
	return &Response{
		Code: code.InvalidAmount,
		Log:  fmt.Sprintf("Amount %q is not a valid uint256", value),
		Info: EncodeError(code.NewSimple(code.InvalidAmount)),
	}
}

// parseAmount reads a decimal uint256.
func parseAmount(value string) (*big.Int, *Response) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || !helpers.IsUint256(amount) {
		return nil, invalidAmount(value)
	}
	return amount, nil
}

func newResponse(c uint32, log string, info interface{}) *Response {
	return &Response{Code: c, Log: log, Info: EncodeError(info)}
}

// transferFailed maps a collaborator error to a response that still carries it.
func transferFailed(err error, address types.Address, amount *big.Int) Response {
	c := code.TransferFailed
	switch {
	case errors.Is(err, asset.ErrInsufficientBalance):
		c = code.InsufficientFunds
	case errors.Is(err, asset.ErrInsufficientAllowance):
		c = code.InsufficientAllowance
	}

	return Response{
		Code:  c,
		Log:   err.Error(),
		Info:  EncodeError(code.NewTransferFailed(c, address.String(), amount.String(), err.Error())),
		cause: err,
	}
}

func checkStateOf(context state.Interface) (*state.CheckState, bool) {
	if checkState, isCheck := context.(*state.CheckState); isCheck {
		return checkState, true
	}
	return state.NewCheckState(context.(*state.State)), false
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
