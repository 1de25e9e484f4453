package events

import (
	"encoding/binary"
	"sync"

	"github.com/tendermint/go-amino"
	db "github.com/tendermint/tm-db"
)

// IEventsDB is an interface of Events
type IEventsDB interface {
	AddEvent(event Event)
	LoadEvents(height uint32) Events
	CommitEvents(height uint32) error
}

type eventsStore struct {
	cdc *amino.Codec
	sync.RWMutex
	db      db.DB
	pending pendingEvents
}

type pendingEvents struct {
	sync.Mutex
	items Events
}

// RegisterAmino registers every event type in cdc.
func RegisterAmino(cdc *amino.Codec) {
	cdc.RegisterInterface((*Event)(nil), nil)
	cdc.RegisterConcrete(&OwnershipTransferAuthorizationEvent{}, TypeOwnershipTransferAuthorization, nil)
	cdc.RegisterConcrete(&OwnerUpdateEvent{}, TypeOwnerUpdate, nil)
	cdc.RegisterConcrete(&WithdrawalPublisherUpdateEvent{}, TypeWithdrawalPublisherUpdate, nil)
	cdc.RegisterConcrete(&FallbackPublisherUpdateEvent{}, TypeFallbackPublisherUpdate, nil)
	cdc.RegisterConcrete(&LimitPublisherUpdateEvent{}, TypeLimitPublisherUpdate, nil)
	cdc.RegisterConcrete(&FallbackWithdrawalDelayUpdateEvent{}, TypeFallbackWithdrawalDelayUpdate, nil)
	cdc.RegisterConcrete(&DepositEvent{}, TypeDeposit, nil)
	cdc.RegisterConcrete(&PendingDepositRefundEvent{}, TypePendingDepositRefund, nil)
	cdc.RegisterConcrete(&WithdrawalRootHashAdditionEvent{}, TypeWithdrawalRootHashAddition, nil)
	cdc.RegisterConcrete(&WithdrawalRootHashRemovalEvent{}, TypeWithdrawalRootHashRemoval, nil)
	cdc.RegisterConcrete(&RenounceWithdrawalAuthorizationEvent{}, TypeRenounceWithdrawalAuthorization, nil)
	cdc.RegisterConcrete(&WithdrawalEvent{}, TypeWithdrawal, nil)
	cdc.RegisterConcrete(&ImmediatelyWithdrawableLimitUpdateEvent{}, TypeImmediatelyWithdrawableLimitUpdate, nil)
	cdc.RegisterConcrete(&FallbackRootHashSetEvent{}, TypeFallbackRootHashSet, nil)
	cdc.RegisterConcrete(&FallbackMechanismDateResetEvent{}, TypeFallbackMechanismDateReset, nil)
	cdc.RegisterConcrete(&FallbackWithdrawalEvent{}, TypeFallbackWithdrawal, nil)
	cdc.RegisterConcrete(&ApprovalEvent{}, TypeApproval, nil)
}

// NewEventsStore creates new events store in given DB
func NewEventsStore(db db.DB) IEventsDB {
	codec := amino.NewCodec()
	RegisterAmino(codec)

	return &eventsStore{
		cdc:     codec,
		RWMutex: sync.RWMutex{},
		db:      db,
		pending: pendingEvents{},
	}
}

func (store *eventsStore) AddEvent(event Event) {
	store.pending.Lock()
	defer store.pending.Unlock()

	store.pending.items = append(store.pending.items, event)
}

func (store *eventsStore) LoadEvents(height uint32) Events {
	store.RLock()
	defer store.RUnlock()

	bytes, err := store.db.Get(uint32ToBytes(height))
	if err != nil {
		panic(err)
	}
	if len(bytes) == 0 {
		return Events{}
	}

	var items []Event
	if err := store.cdc.UnmarshalBinaryBare(bytes, &items); err != nil {
		panic(err)
	}

	return items
}

// CommitEvents stores the pending events under height. Heights without events are not written.
func (store *eventsStore) CommitEvents(height uint32) error {
	store.pending.Lock()
	defer store.pending.Unlock()

	if len(store.pending.items) == 0 {
		return nil
	}

	data := make([]Event, len(store.pending.items))
	copy(data, store.pending.items)

	bytes, err := store.cdc.MarshalBinaryBare(data)
	if err != nil {
		return err
	}

	store.Lock()
	defer store.Unlock()
	if err := store.db.Set(uint32ToBytes(height), bytes); err != nil {
		return err
	}

	store.pending.items = nil
	return nil
}

func uint32ToBytes(height uint32) []byte {
	var h = make([]byte, 4)
	binary.BigEndian.PutUint32(h, height)
	return h
}
