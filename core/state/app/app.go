package app

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

const mainPrefix = 'd'

var cdc = amino.NewCodec()

type RApp interface {
	Export(state *types.AppState)
	GetDepositNonce() uint64
	GetMaxGeneration() uint64
	GetBudget() *big.Int
}

// App keeps the ledger-wide counters: the last deposit nonce, the highest registered
// withdrawal root generation and the immediately withdrawable budget.
type App struct {
	model   *Model
	isDirty bool

	db atomic.Value

	mx sync.Mutex
}

func NewApp(db *iavl.ImmutableTree) *App {
	immutableTree := atomic.Value{}
	if db != nil {
		immutableTree.Store(db)
	}
	return &App{db: immutableTree}
}

func (a *App) immutableTree() *iavl.ImmutableTree {
	db := a.db.Load()
	if db == nil {
		return nil
	}
	return db.(*iavl.ImmutableTree)
}

func (a *App) SetImmutableTree(immutableTree *iavl.ImmutableTree) {
	a.db.Store(immutableTree)
}

func (a *App) Commit(db *iavl.MutableTree, _ int64) error {
	a.mx.Lock()
	defer a.mx.Unlock()

	if !a.isDirty {
		return nil
	}

	a.isDirty = false

	a.model.mx.RLock()
	data, err := cdc.MarshalBinaryBare(a.model)
	a.model.mx.RUnlock()
	if err != nil {
		return fmt.Errorf("can't encode app model: %s", err)
	}

	path := []byte{mainPrefix}
	db.Set(path, data)

	return nil
}

func (a *App) GetDepositNonce() uint64 {
	return a.getOrNew().getDepositNonce()
}

func (a *App) SetDepositNonce(nonce uint64) {
	a.getOrNew().setDepositNonce(nonce)
}

func (a *App) GetMaxGeneration() uint64 {
	return a.getOrNew().getMaxGeneration()
}

func (a *App) SetMaxGeneration(generation uint64) {
	a.getOrNew().setMaxGeneration(generation)
}

func (a *App) GetBudget() *big.Int {
	return a.getOrNew().getBudget()
}

func (a *App) SetBudget(budget *big.Int) {
	a.getOrNew().setBudget(budget)
}

func (a *App) Export(state *types.AppState) {
	state.DepositNonce = a.GetDepositNonce()
	state.MaxGeneration = a.GetMaxGeneration()
	state.Budget = a.GetBudget().String()
}

func (a *App) get() *Model {
	a.mx.Lock()
	defer a.mx.Unlock()

	if a.model != nil {
		return a.model
	}

	path := []byte{mainPrefix}
	_, enc := a.immutableTree().Get(path)
	if len(enc) == 0 {
		return nil
	}

	model := &Model{}
	if err := cdc.UnmarshalBinaryBare(enc, model); err != nil {
		panic(fmt.Sprintf("failed to decode app model: %s", err))
	}

	a.model = model
	a.model.markDirty = a.markDirty
	return a.model
}

func (a *App) getOrNew() *Model {
	model := a.get()
	if model == nil {
		model = &Model{
			Budget:    "0",
			markDirty: a.markDirty,
		}
		a.mx.Lock()
		a.model = model
		a.mx.Unlock()
	}

	return model
}

func (a *App) markDirty() {
	a.mx.Lock()
	defer a.mx.Unlock()

	a.isDirty = true
}
