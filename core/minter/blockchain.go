package minter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/appdb"
	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/pkg/errors"
	abciTypes "github.com/tendermint/tendermint/abci/types"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmlog "github.com/tendermint/tendermint/libs/log"
	tmNode "github.com/tendermint/tendermint/node"
	rpc "github.com/tendermint/tendermint/rpc/client/local"
)

// Blockchain is the ABCI application replicating the ledger
type Blockchain struct {
	abciTypes.BaseApplication

	logger tmlog.Logger

	executor      *transaction.Executor
	statisticData *statistics.Data

	appDB        *appdb.AppDB
	eventsDB     events.IEventsDB
	stateDeliver *state.State
	stateCheck   *state.CheckState
	height       uint64 // current Blockchain height
	blockTime    time.Time

	lock sync.RWMutex

	// local rpc client for Tendermint
	rpcClient *rpc.Local
	tmNode    *tmNode.Node

	// currentMempool is responsive for prevent sending multiple transactions from one address in one block
	currentMempool *sync.Map

	cfg      *config.Config
	storages *utils.Storage
	stopChan context.Context
	stopped  bool
}

// NewLedgerBlockchain creates Blockchain instance, should be only called once
func NewLedgerBlockchain(storages *utils.Storage, cfg *config.Config, ctx context.Context, logger tmlog.Logger) *Blockchain {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = tmlog.NewNopLogger()
	}

	app := &Blockchain{
		logger:         logger,
		executor:       transaction.NewExecutor(transaction.GetData),
		appDB:          appdb.NewAppDB(storages.AppDB()),
		eventsDB:       events.NewEventsStore(storages.EventDB()),
		currentMempool: &sync.Map{},
		cfg:            cfg,
		storages:       storages,
		stopChan:       ctx,
	}
	if app.appDB.GetLastHeight() != 0 {
		app.initState()
	}
	return app
}

func (blockchain *Blockchain) initState() {
	initialHeight := blockchain.appDB.GetStartHeight()
	currentHeight := blockchain.appDB.GetLastHeight()

	stateDeliver, err := state.NewState(currentHeight,
		blockchain.storages.StateDB(),
		blockchain.eventsDB,
		blockchain.cfg.StateCacheSize,
		blockchain.cfg.KeepLastStates,
		initialHeight+1)
	if err != nil {
		panic(err)
	}

	height := currentHeight
	if height == 0 {
		height = initialHeight
	}
	atomic.StoreUint64(&blockchain.height, height)

	blockchain.lock.Lock()
	blockchain.stateDeliver = stateDeliver
	blockchain.stateCheck = state.NewCheckState(stateDeliver)
	blockchain.lock.Unlock()
}

// InitChain imports the ledger genesis. The first committed block gets the initial height as
// its state version.
func (blockchain *Blockchain) InitChain(req abciTypes.RequestInitChain) abciTypes.ResponseInitChain {
	var genesisState types.AppState
	if err := tmjson.Unmarshal(req.AppStateBytes, &genesisState); err != nil {
		panic(err)
	}

	initialHeight := uint64(req.InitialHeight) - 1

	blockchain.appDB.SetStartHeight(initialHeight)
	blockchain.appDB.AddVersion(version.Version, initialHeight)
	blockchain.initState()

	if err := blockchain.stateDeliver.Import(genesisState, req.Time); err != nil {
		panic(err)
	}

	blockchain.appDB.SetLastHeight(initialHeight)
	blockchain.appDB.SaveStartHeight()
	blockchain.appDB.SaveVersions()

	blockchain.logger.Info("Ledger genesis imported", "owner", genesisState.Owner.String(), "initial_height", req.InitialHeight)

	return abciTypes.ResponseInitChain{}
}

// BeginBlock fixes the time every transaction of the block is executed at.
func (blockchain *Blockchain) BeginBlock(req abciTypes.RequestBeginBlock) abciTypes.ResponseBeginBlock {
	height := uint64(req.Header.Height)
	if blockchain.stateDeliver == nil {
		blockchain.initState()
	}

	blockchain.StatisticData().SetStartBlock(height, time.Now(), req.Header.Time)

	blockchain.lock.Lock()
	blockchain.blockTime = req.Header.Time
	blockchain.lock.Unlock()

	blockchain.appDB.AddVersion(version.Version, height)

	return abciTypes.ResponseBeginBlock{}
}

func (blockchain *Blockchain) EndBlock(req abciTypes.RequestEndBlock) abciTypes.ResponseEndBlock {
	atomic.StoreUint64(&blockchain.height, uint64(req.Height))
	return abciTypes.ResponseEndBlock{}
}

// Info return application info. Used for synchronization between Tendermint and the ledger
func (blockchain *Blockchain) Info(_ abciTypes.RequestInfo) (resInfo abciTypes.ResponseInfo) {
	hash := blockchain.appDB.GetLastBlockHash()
	height := int64(blockchain.appDB.GetLastHeight())
	return abciTypes.ResponseInfo{
		Version:          version.Version,
		AppVersion:       version.AppVer,
		LastBlockHeight:  height,
		LastBlockAppHash: hash,
	}
}

// DeliverTx deliver a tx for full processing
func (blockchain *Blockchain) DeliverTx(req abciTypes.RequestDeliverTx) abciTypes.ResponseDeliverTx {
	env := &transaction.Env{
		Time:   blockchain.BlockTime(),
		Height: blockchain.Height() + 1,
		Assets: blockchain.stateDeliver.Assets,
	}
	response := blockchain.executor.RunTx(blockchain.stateDeliver, req.Tx, env, nil)
	blockchain.pushTx(req.Tx, response)

	abciEvents := []abciTypes.Event{
		{
			Type:       "tags",
			Attributes: response.Tags,
		},
	}
	if response.Code == code.OK {
		for _, event := range response.Events {
			blockchain.eventsDB.AddEvent(event)
		}
		abciEvents = append(abciEvents, response.Events.ABCI()...)
	}

	return abciTypes.ResponseDeliverTx{
		Code:   response.Code,
		Data:   response.Data,
		Log:    response.Log,
		Info:   response.Info,
		Events: abciEvents,
	}
}

// CheckTx validates a tx for the mempool against the wall clock
func (blockchain *Blockchain) CheckTx(req abciTypes.RequestCheckTx) abciTypes.ResponseCheckTx {
	env := &transaction.Env{
		Time:   time.Now(),
		Height: blockchain.Height() + 1,
	}
	response := blockchain.executor.RunTx(blockchain.CurrentState(), req.Tx, env, blockchain.currentMempool)

	return abciTypes.ResponseCheckTx{
		Code: response.Code,
		Data: response.Data,
		Log:  response.Log,
		Info: response.Info,
		Events: []abciTypes.Event{
			{
				Type:       "tags",
				Attributes: response.Tags,
			},
		},
	}
}

// Commit the state and return the application Merkle root hash
func (blockchain *Blockchain) Commit() abciTypes.ResponseCommit {
	height := blockchain.Height()

	// Flush events db
	if err := blockchain.eventsDB.CommitEvents(uint32(height)); err != nil {
		panic(err)
	}

	// Committing ledger state
	hash, err := blockchain.stateDeliver.Commit()
	if err != nil {
		panic(errors.Wrap(err, fmt.Sprintf("height %d", height)))
	}

	// Persist application hash and height
	blockchain.appDB.SetLastBlockHash(hash)
	blockchain.appDB.SetLastHeight(height)
	blockchain.appDB.SaveVersions()

	// Clear mempool
	blockchain.currentMempool = &sync.Map{}

	blockchain.StatisticData().SetEndBlockDuration(time.Now(), height)
	blockchain.StatisticData().SetLedger(blockchain.CurrentState())

	blockchain.checkStop()

	return abciTypes.ResponseCommit{
		Data: hash,
	}
}

// Query is not used, reads are served by the API from the committed state
func (blockchain *Blockchain) Query(_ abciTypes.RequestQuery) abciTypes.ResponseQuery {
	return abciTypes.ResponseQuery{}
}

// Close closes db connections
func (blockchain *Blockchain) Close() error {
	return blockchain.storages.Close()
}

func (blockchain *Blockchain) pushTx(rawTx []byte, response transaction.Response) {
	if blockchain.statisticData == nil {
		return
	}

	txType := "unknown"
	if tx, err := transaction.DecodeFromBytesWithoutSig(rawTx); err == nil {
		txType = tx.Type.String()
	}
	blockchain.statisticData.PushTx(txType, response.Code)
}
