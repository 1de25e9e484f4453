package transaction

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/state/fallback"
	"github.com/flexa/capacity-smart-contracts/types"
)

type SetFallbackDelayData struct {
	Delay uint64
}

func (data SetFallbackDelayData) TxType() TxType {
	return TypeSetFallbackDelay
}

func (data SetFallbackDelayData) String() string {
	return fmt.Sprintf("SET FALLBACK DELAY seconds:%d", data.Delay)
}

func (data SetFallbackDelayData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner can set the fallback withdrawal delay", owner(context)); response != nil {
		return response
	}

	if data.Delay == 0 {
		return newResponse(code.WrongFallbackDelay, "New fallback delay may not be 0", code.NewSimple(code.WrongFallbackDelay))
	}

	return nil
}

func (data SetFallbackDelayData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		old := deliverState.Fallback.Delay()
		deliverState.Fallback.SetDelay(data.Delay)
		evs = events.Events{&events.FallbackWithdrawalDelayUpdateEvent{OldValue: old, NewValue: data.Delay}}
	}

	return Response{Code: code.OK, Events: evs}
}

// SetFallbackRootData publishes a new fallback root covering deposits up to MaxDepositIncluded.
// Pending deposits it covers are finalized.
type SetFallbackRootData struct {
	Root               types.Hash
	MaxDepositIncluded uint64
}

func (data SetFallbackRootData) TxType() TxType {
	return TypeSetFallbackRoot
}

func (data SetFallbackRootData) String() string {
	return fmt.Sprintf("SET FALLBACK ROOT root:%s max deposit:%d", data.Root.String(), data.MaxDepositIncluded)
}

func (data SetFallbackRootData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	if response := checkRoles(sender, "Only the owner and fallback publisher can set the fallback root hash",
		owner(context), fallbackPublisher(context)); response != nil {
		return response
	}

	fb := context.Fallback()
	if fb.IsActive(env.Time) {
		return fallbackStateResponse(code.FallbackMechanismActive, "Cannot set fallback root while fallback mechanism is active", fb)
	}

	if data.Root.IsZero() {
		return newResponse(code.ZeroRoot, "New root may not be 0", code.NewSimple(code.ZeroRoot))
	}

	if current := fb.MaxDepositIncluded(); data.MaxDepositIncluded < current {
		return newResponse(code.MaxDepositDecreased, "Max deposit included must remain the same or increase",
			code.NewMaxDepositDecreased(u64(current), u64(data.MaxDepositIncluded)))
	}

	if depositNonce := context.App().GetDepositNonce(); data.MaxDepositIncluded > depositNonce {
		return newResponse(code.FutureDeposits, "Cannot invalidate future deposits",
			code.NewFutureDeposits(u64(depositNonce), u64(data.MaxDepositIncluded)))
	}

	return nil
}

func (data SetFallbackRootData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		previous := deliverState.Fallback.MaxDepositIncluded()
		deliverState.Fallback.SetRoot(data.Root, data.MaxDepositIncluded, env.Time.Unix())
		deliverState.Deposits.DeleteRange(previous, data.MaxDepositIncluded)

		evs = events.Events{&events.FallbackRootHashSetEvent{
			RootHash:                data.Root,
			MaxDepositNonceIncluded: data.MaxDepositIncluded,
			SetDate:                 env.Time.Unix(),
		}}
	}

	return Response{Code: code.OK, Events: evs}
}

// ResetFallbackDateData restarts the fallback delay from now.
type ResetFallbackDateData struct{}

func (data ResetFallbackDateData) TxType() TxType {
	return TypeResetFallbackDate
}

func (data ResetFallbackDateData) String() string {
	return "RESET FALLBACK MECHANISM DATE"
}

func (data ResetFallbackDateData) basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response {
	sender, _ := tx.Sender()

	return checkRoles(sender, "Only the owner and fallback publisher can reset fallback mechanism date",
		owner(context), fallbackPublisher(context))
}

func (data ResetFallbackDateData) Run(tx *Transaction, context state.Interface, env *Env) Response {
	checkState, _ := checkStateOf(context)

	if response := data.basicCheck(tx, checkState, env); response != nil {
		return *response
	}

	var evs events.Events
	if deliverState, ok := context.(*state.State); ok {
		deliverState.Fallback.SetSetDate(env.Time.Unix())
		evs = events.Events{&events.FallbackMechanismDateResetEvent{NewDate: env.Time.Unix()}}
	}

	return Response{Code: code.OK, Events: evs}
}

func fallbackStateResponse(c uint32, log string, fb fallback.RFallback) *Response {
	return newResponse(c, log, code.NewFallbackState(c, fmt.Sprint(fb.SetDate()), u64(fb.Delay()), fmt.Sprint(fb.ActiveFrom())))
}
