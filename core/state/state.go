package state

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cosmos/iavl"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state/accounts"
	"github.com/flexa/capacity-smart-contracts/core/state/app"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/core/state/deposits"
	"github.com/flexa/capacity-smart-contracts/core/state/fallback"
	"github.com/flexa/capacity-smart-contracts/core/state/roles"
	"github.com/flexa/capacity-smart-contracts/core/state/roots"
	"github.com/flexa/capacity-smart-contracts/helpers"
	"github.com/flexa/capacity-smart-contracts/tree"
	"github.com/flexa/capacity-smart-contracts/types"
	db "github.com/tendermint/tm-db"
)

type Interface interface {
	isValue_State()
}

type CheckState struct {
	state *State
}

func NewCheckState(state *State) *CheckState {
	return &CheckState{state: state}
}

func (cs *CheckState) isValue_State() {}

func (cs *CheckState) RLock() {
	cs.state.RLock()
}

func (cs *CheckState) RUnlock() {
	cs.state.RUnlock()
}

func (cs *CheckState) Export() types.AppState {
	appState := new(types.AppState)
	cs.Roles().Export(appState)
	cs.App().Export(appState)
	cs.Fallback().Export(appState)
	cs.Deposits().Export(appState)
	cs.Roots().Export(appState)
	cs.Accounts().Export(appState)
	cs.Assets().Export(appState)

	return *appState
}

func (cs *CheckState) Roles() roles.RRoles {
	return cs.state.Roles
}
func (cs *CheckState) App() app.RApp {
	return cs.state.App
}
func (cs *CheckState) Deposits() deposits.RDeposits {
	return cs.state.Deposits
}
func (cs *CheckState) Roots() roots.RRoots {
	return cs.state.Roots
}
func (cs *CheckState) Accounts() accounts.RAccounts {
	return cs.state.Accounts
}
func (cs *CheckState) Fallback() fallback.RFallback {
	return cs.state.Fallback
}
func (cs *CheckState) Assets() assets.RAssets {
	return cs.state.Assets
}

// State is the mutable ledger state. All sub-stores share one iavl tree, so a commit produces
// a single app hash.
type State struct {
	Roles    *roles.Roles
	App      *app.App
	Deposits *deposits.Deposits
	Roots    *roots.Roots
	Accounts *accounts.Accounts
	Fallback *fallback.Fallback
	Assets   *assets.Assets

	db             db.DB
	events         events.IEventsDB
	tree           tree.MTree
	keepLastStates int64

	lock           sync.RWMutex
	height         int64
	initialVersion int64
}

func (s *State) isValue_State() {}

func NewState(height uint64, db db.DB, events events.IEventsDB, cacheSize int, keepLastStates int64, initialVersion uint64) (*State, error) {
	iavlTree, err := tree.NewMutableTree(height, db, cacheSize, initialVersion)
	if err != nil {
		return nil, err
	}

	state := newStateForTree(iavlTree.GetLastImmutable(), events, db, keepLastStates)
	state.tree = iavlTree
	state.height = int64(height)
	state.initialVersion = int64(initialVersion)

	return state, nil
}

func NewCheckStateAtHeight(height uint64, db db.DB) (*CheckState, error) {
	immutableTree, err := tree.NewImmutableTree(height, db)
	if err != nil {
		return nil, err
	}
	return NewCheckState(newStateForTree(immutableTree, nil, db, 0)), nil
}

func (s *State) Tree() tree.MTree {
	return s.tree
}

func (s *State) Events() events.IEventsDB {
	return s.events
}

func (s *State) Height() int64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.height
}

func (s *State) Lock() {
	s.lock.Lock()
}

func (s *State) Unlock() {
	s.lock.Unlock()
}

func (s *State) RLock() {
	s.lock.RLock()
}

func (s *State) RUnlock() {
	s.lock.RUnlock()
}

func (s *State) Commit() ([]byte, error) {
	hash, version, err := s.tree.Commit(
		s.Roles,
		s.App,
		s.Deposits,
		s.Roots,
		s.Accounts,
		s.Fallback,
		s.Assets,
	)
	if err != nil {
		return hash, err
	}

	s.lock.Lock()
	s.height = version
	s.lock.Unlock()

	if s.keepLastStates <= 0 {
		return hash, nil
	}

	versionToDelete := version - s.keepLastStates - 1
	if versionToDelete < s.initialVersion || versionToDelete < 1 {
		return hash, nil
	}

	if err := s.tree.DeleteVersion(versionToDelete); err != nil {
		log.Printf("DeleteVersion %d error: %s\n", versionToDelete, err)
	}

	return hash, nil
}

// Import loads a genesis app state. A zero fallback set date starts the fallback delay at
// genesisTime.
func (s *State) Import(state types.AppState, genesisTime time.Time) error {
	if err := state.Verify(); err != nil {
		return fmt.Errorf("invalid app state: %w", err)
	}
	if state.FallbackSetDate == 0 {
		state.FallbackSetDate = genesisTime.Unix()
	}

	s.Roles.SetOwner(state.Owner)
	if state.CandidateOwner != nil {
		s.Roles.SetCandidateOwner(*state.CandidateOwner)
	}
	s.Roles.SetWithdrawalPublisher(state.WithdrawalPublisher)
	s.Roles.SetFallbackPublisher(state.FallbackPublisher)
	s.Roles.SetLimitPublisher(state.LimitPublisher)

	s.App.SetDepositNonce(state.DepositNonce)
	s.App.SetMaxGeneration(state.MaxGeneration)
	s.App.SetBudget(helpers.StringToBigInt(state.Budget))

	s.Fallback.SetRoot(state.FallbackRoot, state.FallbackMaxDepositIncluded, state.FallbackSetDate)
	s.Fallback.SetDelay(state.FallbackDelay)

	for _, deposit := range state.PendingDeposits {
		s.Deposits.Create(deposit.Nonce, deposit.Depositor, helpers.StringToBigInt(deposit.Amount))
	}

	for _, root := range state.WithdrawalRoots {
		s.Roots.Add(root.Root, root.Generation)
	}

	for _, account := range state.Accounts {
		s.Accounts.SetProgress(account.Address, account.Progress)
		s.Accounts.SetCumulativeWithdrawn(account.Address, helpers.StringToBigInt(account.CumulativeWithdrawn))
		s.Accounts.SetNonce(account.Address, account.TxNonce)
	}

	for _, balance := range state.Balances {
		s.Assets.SetBalance(balance.Address, helpers.StringToBigInt(balance.Balance))
		s.Assets.Approve(balance.Address, helpers.StringToBigInt(balance.Allowance))
	}

	return nil
}

// Export reads the last committed version from disk.
func (s *State) Export() types.AppState {
	state, err := NewCheckStateAtHeight(uint64(s.tree.Version()), s.db)
	if err != nil {
		log.Panicf("Create new state at height %d failed: %s", s.tree.Version(), err)
	}

	return state.Export()
}

func newStateForTree(immutableTree *iavl.ImmutableTree, events events.IEventsDB, db db.DB, keepLastStates int64) *State {
	return &State{
		Roles:          roles.NewRoles(immutableTree),
		App:            app.NewApp(immutableTree),
		Deposits:       deposits.NewDeposits(immutableTree),
		Roots:          roots.NewRoots(immutableTree),
		Accounts:       accounts.NewAccounts(immutableTree),
		Fallback:       fallback.NewFallback(immutableTree),
		Assets:         assets.NewAssets(immutableTree),
		db:             db,
		events:         events,
		keepLastStates: keepLastStates,
	}
}
