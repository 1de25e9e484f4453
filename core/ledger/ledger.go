// Package ledger runs the custodial staking ledger in-process. Every operation is executed
// atomically against the state with the caller supplied by the host, and either returns the
// emitted events or an error leaving the state untouched.
package ledger

import (
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/asset"
	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/pkg/errors"
	tmlog "github.com/tendermint/tendermint/libs/log"
	db "github.com/tendermint/tm-db"
)

type Ledger struct {
	lock sync.Mutex

	state    *state.State
	executor *transaction.Executor
	assets   asset.Transfer
	clock    func() time.Time
	logger   tmlog.Logger
	stat     *statistics.Data
}

type Option func(l *Ledger)

// WithClock sets the source of the current time. It is read once per operation.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithAssets replaces the built-in asset with an external collaborator.
func WithAssets(assets asset.Transfer) Option {
	return func(l *Ledger) {
		l.assets = assets
	}
}

func WithLogger(logger tmlog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithStatistics(stat *statistics.Data) Option {
	return func(l *Ledger) {
		l.stat = stat
	}
}

func New(s *state.State, opts ...Option) *Ledger {
	l := &Ledger{
		state:    s,
		executor: transaction.NewExecutor(transaction.GetData),
		assets:   s.Assets,
		clock:    time.Now,
		logger:   tmlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewInMemory creates a ledger on a memory database initialised with genesis. A genesis
// without a fallback set date starts the fallback delay at the ledger clock.
func NewInMemory(genesis types.AppState, opts ...Option) (*Ledger, error) {
	s, err := state.NewState(0, db.NewMemDB(), nil, 1024, 0, 0)
	if err != nil {
		return nil, err
	}

	l := New(s, opts...)
	if err := s.Import(genesis, l.clock()); err != nil {
		return nil, err
	}

	if _, err := s.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit genesis")
	}

	return l, nil
}

func (l *Ledger) execute(caller types.Address, data transaction.Data) transaction.Response {
	l.lock.Lock()
	defer l.lock.Unlock()

	env := &transaction.Env{
		Time:   l.clock(),
		Height: uint64(l.state.Height()) + 1,
		Assets: l.assets,
	}

	response := l.executor.Execute(l.state, transaction.NewTransaction(caller, data), env)
	l.stat.PushTx(data.TxType().String(), response.Code)

	if response.Code != code.OK {
		l.logger.Debug("Operation rejected", "caller", caller.String(), "op", data.String(), "code", response.Code, "log", response.Log)
	} else {
		l.logger.Debug("Operation executed", "caller", caller.String(), "op", data.String())
	}

	return response
}

func (l *Ledger) run(caller types.Address, data transaction.Data) (events.Events, error) {
	response := l.execute(caller, data)
	if err := response.Error(); err != nil {
		return nil, err
	}
	return response.Events, nil
}

func (l *Ledger) AuthorizeOwnershipTransfer(caller, candidate types.Address) (events.Events, error) {
	return l.run(caller, &transaction.AuthorizeOwnershipTransferData{Candidate: candidate})
}

func (l *Ledger) AcceptOwnership(caller types.Address) (events.Events, error) {
	return l.run(caller, &transaction.AcceptOwnershipData{})
}

func (l *Ledger) SetWithdrawalPublisher(caller, publisher types.Address) (events.Events, error) {
	return l.run(caller, &transaction.SetWithdrawalPublisherData{Address: publisher})
}

func (l *Ledger) SetFallbackPublisher(caller, publisher types.Address) (events.Events, error) {
	return l.run(caller, &transaction.SetFallbackPublisherData{Address: publisher})
}

func (l *Ledger) SetLimitPublisher(caller, publisher types.Address) (events.Events, error) {
	return l.run(caller, &transaction.SetLimitPublisherData{Address: publisher})
}

// SetFallbackDelay sets the fallback delay in seconds.
func (l *Ledger) SetFallbackDelay(caller types.Address, seconds uint64) (events.Events, error) {
	return l.run(caller, &transaction.SetFallbackDelayData{Delay: seconds})
}

// Deposit pulls amount from caller into custody and returns the nonce of the pending deposit.
func (l *Ledger) Deposit(caller types.Address, amount *big.Int) (uint64, events.Events, error) {
	response := l.execute(caller, &transaction.DepositData{Amount: amountString(amount)})
	if err := response.Error(); err != nil {
		return 0, nil, err
	}

	nonce, err := strconv.ParseUint(string(response.Data), 10, 64)
	if err != nil {
		return 0, nil, errors.Wrap(err, "deposit nonce")
	}

	return nonce, response.Events, nil
}

func (l *Ledger) RefundPendingDeposit(caller types.Address, nonce uint64) (events.Events, error) {
	return l.run(caller, &transaction.RefundPendingDepositData{Nonce: nonce})
}

func (l *Ledger) AddWithdrawalRoot(caller types.Address, root types.Hash, generation uint64, replaced []types.Hash) (events.Events, error) {
	return l.run(caller, &transaction.AddWithdrawalRootData{Root: root, Generation: generation, Replaced: replaced})
}

func (l *Ledger) RemoveWithdrawalRoots(caller types.Address, roots []types.Hash) (events.Events, error) {
	return l.run(caller, &transaction.RemoveWithdrawalRootsData{Roots: roots})
}

func (l *Ledger) RenounceWithdrawalAuthorization(caller, account types.Address) (events.Events, error) {
	return l.run(caller, &transaction.RenounceAuthorizationData{Account: account})
}

func (l *Ledger) Withdraw(caller, account types.Address, amount *big.Int, accountNonce uint64, proof []types.Hash) (events.Events, error) {
	return l.run(caller, &transaction.WithdrawData{
		Account:      account,
		Amount:       amountString(amount),
		AccountNonce: accountNonce,
		Proof:        proof,
	})
}

func (l *Ledger) ModifyBudget(caller types.Address, delta *big.Int) (events.Events, error) {
	return l.run(caller, &transaction.ModifyBudgetData{Delta: amountString(delta)})
}

func (l *Ledger) SetFallbackRoot(caller types.Address, root types.Hash, maxDepositIncluded uint64) (events.Events, error) {
	return l.run(caller, &transaction.SetFallbackRootData{Root: root, MaxDepositIncluded: maxDepositIncluded})
}

func (l *Ledger) ResetFallbackMechanismDate(caller types.Address) (events.Events, error) {
	return l.run(caller, &transaction.ResetFallbackDateData{})
}

func (l *Ledger) WithdrawFallback(caller, account types.Address, maxCumulative *big.Int, proof []types.Hash) (events.Events, error) {
	return l.run(caller, &transaction.WithdrawFallbackData{
		Account:       account,
		MaxCumulative: amountString(maxCumulative),
		Proof:         proof,
	})
}

// Approve sets the amount the ledger may pull from caller's balance of the built-in asset.
func (l *Ledger) Approve(caller types.Address, amount *big.Int) (events.Events, error) {
	return l.run(caller, &transaction.ApproveData{Amount: amountString(amount)})
}

// State returns a read-only view of the current, possibly uncommitted, state.
func (l *Ledger) State() *state.CheckState {
	return state.NewCheckState(l.state)
}

// FallbackActive reports whether the fallback mechanism is active at the current time.
func (l *Ledger) FallbackActive() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.state.Fallback.IsActive(l.clock())
}

// Commit persists the executed operations as a new version and returns its hash.
func (l *Ledger) Commit() ([]byte, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	hash, err := l.state.Commit()
	if err != nil {
		return nil, err
	}
	l.stat.SetLedger(state.NewCheckState(l.state))

	return hash, nil
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return ""
	}
	return amount.String()
}
