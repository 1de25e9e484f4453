package events

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/flexa/capacity-smart-contracts/types"
	abciTypes "github.com/tendermint/tendermint/abci/types"
)

// Event type names
const (
	TypeOwnershipTransferAuthorization     = "ledger/OwnershipTransferAuthorization"
	TypeOwnerUpdate                        = "ledger/OwnerUpdate"
	TypeWithdrawalPublisherUpdate          = "ledger/WithdrawalPublisherUpdate"
	TypeFallbackPublisherUpdate            = "ledger/FallbackPublisherUpdate"
	TypeLimitPublisherUpdate               = "ledger/LimitPublisherUpdate"
	TypeFallbackWithdrawalDelayUpdate      = "ledger/FallbackWithdrawalDelayUpdate"
	TypeDeposit                            = "ledger/Deposit"
	TypePendingDepositRefund               = "ledger/PendingDepositRefund"
	TypeWithdrawalRootHashAddition         = "ledger/WithdrawalRootHashAddition"
	TypeWithdrawalRootHashRemoval          = "ledger/WithdrawalRootHashRemoval"
	TypeRenounceWithdrawalAuthorization    = "ledger/RenounceWithdrawalAuthorization"
	TypeWithdrawal                         = "ledger/Withdrawal"
	TypeImmediatelyWithdrawableLimitUpdate = "ledger/ImmediatelyWithdrawableLimitUpdate"
	TypeFallbackRootHashSet                = "ledger/FallbackRootHashSet"
	TypeFallbackMechanismDateReset         = "ledger/FallbackMechanismDateReset"
	TypeFallbackWithdrawal                 = "ledger/FallbackWithdrawal"
	TypeApproval                           = "ledger/Approval"
)

// Event is a notification emitted by a successful operation.
type Event interface {
	Type() string
}

type Events []Event

type OwnershipTransferAuthorizationEvent struct {
	AuthorizedAddress types.Address `json:"authorized_address"`
}

func (e *OwnershipTransferAuthorizationEvent) Type() string {
	return TypeOwnershipTransferAuthorization
}

type OwnerUpdateEvent struct {
	OldValue types.Address `json:"old_value"`
	NewValue types.Address `json:"new_value"`
}

func (e *OwnerUpdateEvent) Type() string {
	return TypeOwnerUpdate
}

type WithdrawalPublisherUpdateEvent struct {
	OldValue types.Address `json:"old_value"`
	NewValue types.Address `json:"new_value"`
}

func (e *WithdrawalPublisherUpdateEvent) Type() string {
	return TypeWithdrawalPublisherUpdate
}

type FallbackPublisherUpdateEvent struct {
	OldValue types.Address `json:"old_value"`
	NewValue types.Address `json:"new_value"`
}

func (e *FallbackPublisherUpdateEvent) Type() string {
	return TypeFallbackPublisherUpdate
}

type LimitPublisherUpdateEvent struct {
	OldValue types.Address `json:"old_value"`
	NewValue types.Address `json:"new_value"`
}

func (e *LimitPublisherUpdateEvent) Type() string {
	return TypeLimitPublisherUpdate
}

type FallbackWithdrawalDelayUpdateEvent struct {
	OldValue uint64 `json:"old_value"`
	NewValue uint64 `json:"new_value"`
}

func (e *FallbackWithdrawalDelayUpdateEvent) Type() string {
	return TypeFallbackWithdrawalDelayUpdate
}

type DepositEvent struct {
	Depositor types.Address `json:"depositor"`
	Amount    string        `json:"amount"`
	Nonce     uint64        `json:"nonce"`
}

func (e *DepositEvent) Type() string {
	return TypeDeposit
}

type PendingDepositRefundEvent struct {
	DepositorAddress types.Address `json:"depositor_address"`
	Amount           string        `json:"amount"`
	Nonce            uint64        `json:"nonce"`
}

func (e *PendingDepositRefundEvent) Type() string {
	return TypePendingDepositRefund
}

type WithdrawalRootHashAdditionEvent struct {
	RootHash types.Hash `json:"root_hash"`
	Nonce    uint64     `json:"nonce"`
}

func (e *WithdrawalRootHashAdditionEvent) Type() string {
	return TypeWithdrawalRootHashAddition
}

type WithdrawalRootHashRemovalEvent struct {
	RootHash types.Hash `json:"root_hash"`
	Nonce    uint64     `json:"nonce"`
}

func (e *WithdrawalRootHashRemovalEvent) Type() string {
	return TypeWithdrawalRootHashRemoval
}

type RenounceWithdrawalAuthorizationEvent struct {
	ForAddress types.Address `json:"for_address"`
}

func (e *RenounceWithdrawalAuthorizationEvent) Type() string {
	return TypeRenounceWithdrawalAuthorization
}

type WithdrawalEvent struct {
	ToAddress              types.Address `json:"to_address"`
	Amount                 string        `json:"amount"`
	RootNonce              uint64        `json:"root_nonce"`
	AuthorizedAccountNonce uint64        `json:"authorized_account_nonce"`
}

func (e *WithdrawalEvent) Type() string {
	return TypeWithdrawal
}

type ImmediatelyWithdrawableLimitUpdateEvent struct {
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

func (e *ImmediatelyWithdrawableLimitUpdateEvent) Type() string {
	return TypeImmediatelyWithdrawableLimitUpdate
}

type FallbackRootHashSetEvent struct {
	RootHash                types.Hash `json:"root_hash"`
	MaxDepositNonceIncluded uint64     `json:"max_deposit_nonce_included"`
	SetDate                 int64      `json:"set_date"`
}

func (e *FallbackRootHashSetEvent) Type() string {
	return TypeFallbackRootHashSet
}

type FallbackMechanismDateResetEvent struct {
	NewDate int64 `json:"new_date"`
}

func (e *FallbackMechanismDateResetEvent) Type() string {
	return TypeFallbackMechanismDateReset
}

type FallbackWithdrawalEvent struct {
	ToAddress types.Address `json:"to_address"`
	Amount    string        `json:"amount"`
}

func (e *FallbackWithdrawalEvent) Type() string {
	return TypeFallbackWithdrawal
}

// ApprovalEvent is emitted by the built-in asset when an account changes the amount the
// ledger may pull from it.
type ApprovalEvent struct {
	Owner  types.Address `json:"owner"`
	Amount string        `json:"amount"`
}

func (e *ApprovalEvent) Type() string {
	return TypeApproval
}

// ABCI converts events into tendermint events, one attribute per JSON field of the event.
// Address and hash attributes are indexed.
func (e Events) ABCI() []abciTypes.Event {
	result := make([]abciTypes.Event, 0, len(e))
	for _, event := range e {
		fields, err := flatten(event)
		if err != nil {
			panic(fmt.Sprintf("can't encode event %s: %s", event.Type(), err))
		}

		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		attributes := make([]abciTypes.EventAttribute, 0, len(keys))
		for _, key := range keys {
			value := fields[key]
			attributes = append(attributes, abciTypes.EventAttribute{
				Key:   []byte(key),
				Value: []byte(value),
				Index: types.IsHexAddress(value) || len(value) == 2+2*types.HashLength,
			})
		}

		result = append(result, abciTypes.Event{Type: event.Type(), Attributes: attributes})
	}

	return result
}

func flatten(event Event) (map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			s = string(value)
		}
		fields[key] = s
	}

	return fields, nil
}
