package fallback

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

const mainPrefix = 'b'

var cdc = amino.NewCodec()

type RFallback interface {
	Export(state *types.AppState)
	Root() types.Hash
	MaxDepositIncluded() uint64
	SetDate() int64
	Delay() uint64
	IsActive(now time.Time) bool
	ActiveFrom() int64
}

// Fallback is the dead-man's switch: once Delay seconds pass since SetDate without a reset,
// accounts may withdraw their lifetime totals against Root.
type Fallback struct {
	model   *Model
	isDirty bool

	db atomic.Value

	mx sync.Mutex
}

func NewFallback(db *iavl.ImmutableTree) *Fallback {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Fallback{db: immutableTree}
}

func (f *Fallback) immutableTree() *iavl.ImmutableTree {
	db := f.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (f *Fallback) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	f.db.Store(immutableTree)
}

func (f *Fallback) Commit(db *iavl.MutableTree, _ int64) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	if !f.isDirty {
		return nil
	}

	f.isDirty = false

	f.model.mx.RLock()
	data, err := cdc.MarshalBinaryBare(f.model)
	f.model.mx.RUnlock()
	if err != nil {
		return fmt.Errorf("can't encode fallback model: %s", err)
	}

	db.Set([]byte{mainPrefix}, data)

	return nil
}

func (f *Fallback) Root() types.Hash {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.Root
}

func (f *Fallback) MaxDepositIncluded() uint64 {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.MaxDepositIncluded
}

func (f *Fallback) SetDate() int64 {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.SetDate
}

func (f *Fallback) Delay() uint64 {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.Delay
}

// ActiveFrom is the unix time at which the fallback mechanism becomes active.
func (f *Fallback) ActiveFrom() int64 {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	return model.activeFrom()
}

// IsActive reports whether Delay seconds have passed since SetDate at now. A clock behind
// SetDate is treated as inactive.
func (f *Fallback) IsActive(now time.Time) bool {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	elapsed := now.Unix() - model.SetDate
	if elapsed < 0 {
		return false
	}
	return uint64(elapsed) >= model.Delay
}

// SetRoot replaces the root and its deposit ceiling and restarts the delay at setDate.
func (f *Fallback) SetRoot(root types.Hash, maxDepositIncluded uint64, setDate int64) {
	f.getOrNew().update(func(model *Model) {
		model.Root = root
		model.MaxDepositIncluded = maxDepositIncluded
		model.SetDate = setDate
	})
}

func (f *Fallback) SetSetDate(setDate int64) {
	f.getOrNew().update(func(model *Model) {
		model.SetDate = setDate
	})
}

func (f *Fallback) SetDelay(delay uint64) {
	f.getOrNew().update(func(model *Model) {
		model.Delay = delay
	})
}

func (f *Fallback) Export(state *types.AppState) {
	model := f.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	state.FallbackRoot = model.Root
	state.FallbackMaxDepositIncluded = model.MaxDepositIncluded
	state.FallbackSetDate = model.SetDate
	state.FallbackDelay = model.Delay
}

func (f *Fallback) get() *Model {
	f.mx.Lock()
	defer f.mx.Unlock()

	if f.model != nil {
		return f.model
	}

	_, enc := f.immutableTree().Get([]byte{mainPrefix})
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode fallback model: %s", err))
	}

	f.model = model
	f.model.markDirty = f.markDirty
	return f.model
}

func (f *Fallback) getOrNew() *Model {
	model := f.get()
	if model == nil {
		model = &Model{
			Delay:     types.DefaultFallbackDelay,
			markDirty: f.markDirty,
		}
		f.mx.Lock()
		f.model = model
		f.mx.Unlock()
	}

	return model
}

func (f *Fallback) markDirty() {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.isDirty = true
}
