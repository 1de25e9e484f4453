package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/types"
)

type AuthorizeOwnershipTransferData struct {
	Candidate types.Address
}

func (data AuthorizeOwnershipTransferData) TxType() TxType {
	return TypeAuthorizeOwnershipTransfer
}

func (data AuthorizeOwnershipTransferData) String() string {
	return fmt.Sprintf("AUTHORIZE OWNERSHIP TRANSFER candidate:%s", data.Candidate.String())
}

func (data AuthorizeOwnershipTransferData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()
	return checkRoles(sender, "Only the owner can authorize a new address to become owner", owner(context))
}

func (data AuthorizeOwnershipTransferData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Roles.SetCandidateOwner(data.Candidate)
		evs = events.Events{&events.OwnershipTransferAuthorizationEvent{AuthorizedAddress: data.Candidate}}
	}

	return Response{Code: code.OK, Events: evs}
}

type AcceptOwnershipData struct{}

func (data AcceptOwnershipData) TxType() TxType {
	return TypeAcceptOwnership
}

func (data AcceptOwnershipData) String() string {
	return "ACCEPT OWNERSHIP"
}

func (data AcceptOwnershipData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	candidate := context.Roles().CandidateOwner()
	if candidate.IsZero() || candidate != sender {
		return newResponse(code.NotCandidateOwner, "Only the authorized new owner can accept ownership",
			code.NewNotCandidateOwner(sender.String(), candidate.String()))
	}

	return nil
}

func (data AcceptOwnershipData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		sender, _ := tx.Sender()
		previous := deliverState.Roles.AcceptOwnership()
		evs = events.Events{&events.OwnerUpdateEvent{OldValue: previous, NewValue: sender}}
	}

	return Response{Code: code.OK, Events: evs}
}

type SetWithdrawalPublisherData struct {
	Address types.Address
}

func (data SetWithdrawalPublisherData) TxType() TxType {
	return TypeSetWithdrawalPublisher
}

func (data SetWithdrawalPublisherData) String() string {
	return fmt.Sprintf("SET WITHDRAWAL PUBLISHER address:%s", data.Address.String())
}

func (data SetWithdrawalPublisherData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()
	return checkRoles(sender, "Only the owner can set the withdrawal publisher address", owner(context))
}

func (data SetWithdrawalPublisherData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		old := deliverState.Roles.WithdrawalPublisher()
		deliverState.Roles.SetWithdrawalPublisher(data.Address)
		evs = events.Events{&events.WithdrawalPublisherUpdateEvent{OldValue: old, NewValue: data.Address}}
	}

	return Response{Code: code.OK, Events: evs}
}

type SetFallbackPublisherData struct {
	Address types.Address
}

func (data SetFallbackPublisherData) TxType() TxType {
	return TypeSetFallbackPublisher
}

func (data SetFallbackPublisherData) String() string {
	return fmt.Sprintf("SET FALLBACK PUBLISHER address:%s", data.Address.String())
}

func (data SetFallbackPublisherData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()
	return checkRoles(sender, "Only the owner can set the fallback publisher address", owner(context))
}

func (data SetFallbackPublisherData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		old := deliverState.Roles.FallbackPublisher()
		deliverState.Roles.SetFallbackPublisher(data.Address)
		evs = events.Events{&events.FallbackPublisherUpdateEvent{OldValue: old, NewValue: data.Address}}
	}

	return Response{Code: code.OK, Events: evs}
}

type SetLimitPublisherData struct {
	Address types.Address
}

func (data SetLimitPublisherData) TxType() TxType {
	return TypeSetLimitPublisher
}

func (data SetLimitPublisherData) String() string {
	return fmt.Sprintf("SET LIMIT PUBLISHER address:%s", data.Address.String())
}

func (data SetLimitPublisherData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()
	return checkRoles(sender, "Only the owner can set the immediately withdrawable limit publisher address", owner(context))
}

func (data SetLimitPublisherData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		old := deliverState.Roles.LimitPublisher()
		deliverState.Roles.SetLimitPublisher(data.Address)
		evs = events.Events{&events.LimitPublisherUpdateEvent{OldValue: old, NewValue: data.Address}}
	}

	return Response{Code: code.OK, Events: evs}
}
