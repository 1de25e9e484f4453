package roles

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

const mainPrefix = 'r'

var cdc = amino.NewCodec()

type RRoles interface {
	Export(state *types.AppState)
	Owner() types.Address
	CandidateOwner() types.Address
	WithdrawalPublisher() types.Address
	FallbackPublisher() types.Address
	LimitPublisher() types.Address
}

// Roles holds the addresses allowed to run privileged operations.
type Roles struct {
	model   *Model
	isDirty bool

	db atomic.Value

	mx sync.Mutex
}

func NewRoles(db *iavl.ImmutableTree) *Roles {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &Roles{db: immutableTree}
}

func (r *Roles) immutableTree() *iavl.ImmutableTree {
	db := r.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (r *Roles) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	r.db.Store(immutableTree)
}

func (r *Roles) Commit(db *iavl.MutableTree, _ int64) error {
	model := r.getOrNew()

	r.mx.Lock()
	defer r.mx.Unlock()

	if !r.isDirty {
		return nil
	}

	r.isDirty = false

	model.mx.RLock()
	data, err := cdc.MarshalBinaryBare(model)
	model.mx.RUnlock()
	if err != nil {
		return fmt.Errorf("can't encode roles model: %s", err)
	}

	db.Set([]byte{mainPrefix}, data)

	return nil
}

func (r *Roles) Owner() types.Address {
	return r.getOrNew().get(func(m *Model) types.Address { return m.Owner })
}

func (r *Roles) CandidateOwner() types.Address {
	return r.getOrNew().get(func(m *Model) types.Address { return m.CandidateOwner })
}

func (r *Roles) WithdrawalPublisher() types.Address {
	return r.getOrNew().get(func(m *Model) types.Address { return m.WithdrawalPublisher })
}

func (r *Roles) FallbackPublisher() types.Address {
	return r.getOrNew().get(func(m *Model) types.Address { return m.FallbackPublisher })
}

func (r *Roles) LimitPublisher() types.Address {
	return r.getOrNew().get(func(m *Model) types.Address { return m.LimitPublisher })
}

func (r *Roles) SetOwner(address types.Address) {
	r.getOrNew().set(func(m *Model) *types.Address { return &m.Owner }, address)
}

func (r *Roles) SetCandidateOwner(address types.Address) {
	r.getOrNew().set(func(m *Model) *types.Address { return &m.CandidateOwner }, address)
}

func (r *Roles) SetWithdrawalPublisher(address types.Address) {
	r.getOrNew().set(func(m *Model) *types.Address { return &m.WithdrawalPublisher }, address)
}

func (r *Roles) SetFallbackPublisher(address types.Address) {
	r.getOrNew().set(func(m *Model) *types.Address { return &m.FallbackPublisher }, address)
}

func (r *Roles) SetLimitPublisher(address types.Address) {
	r.getOrNew().set(func(m *Model) *types.Address { return &m.LimitPublisher }, address)
}

// AcceptOwnership promotes the candidate to owner and clears the candidate slot. It returns the
// previous owner.
func (r *Roles) AcceptOwnership() (previous types.Address) {
	model := r.getOrNew()

	model.mx.Lock()
	previous = model.Owner
	model.Owner = model.CandidateOwner
	model.CandidateOwner = types.Address{}
	model.mx.Unlock()

	model.markDirty()
	return previous
}

func (r *Roles) Export(state *types.AppState) {
	model := r.getOrNew()

	model.mx.RLock()
	defer model.mx.RUnlock()

	state.Owner = model.Owner
	state.WithdrawalPublisher = model.WithdrawalPublisher
	state.FallbackPublisher = model.FallbackPublisher
	state.LimitPublisher = model.LimitPublisher
	if !model.CandidateOwner.IsZero() {
		candidate := model.CandidateOwner
		state.CandidateOwner = &candidate
	}
}

func (r *Roles) get() *Model {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.model != nil {
		return r.model
	}

	_, enc := r.immutableTree().Get([]byte{mainPrefix})
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode roles model: %s", err))
	}

	r.model = model
	r.model.markDirty = r.markDirty
	return r.model
}

func (r *Roles) getOrNew() *Model {
	model := r.get()
	if model == nil {
		model = &Model{markDirty: r.markDirty}
		r.mx.Lock()
		r.model = model
		r.mx.Unlock()
	}

	return model
}

func (r *Roles) markDirty() {
	r.mx.Lock()
	defer r.mx.Unlock()

	r.isDirty = true
}
