package minter

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/flexa/capacity-smart-contracts/core/appdb"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	tmNode "github.com/tendermint/tendermint/node"
	rpc "github.com/tendermint/tendermint/rpc/client/local"
)

func (blockchain *Blockchain) RpcClient() *rpc.Local {
	return blockchain.rpcClient
}

func (blockchain *Blockchain) InitialHeight() uint64 {
	return blockchain.appDB.GetStartHeight()
}

func (blockchain *Blockchain) checkStop() bool {
	if !blockchain.stopped {
		select {
		case <-blockchain.stopChan.Done():
			blockchain.stop()
		default:
		}
	}
	return blockchain.stopped
}

func (blockchain *Blockchain) stop() {
	blockchain.stopped = true
	if blockchain.tmNode == nil {
		return
	}
	go func() {
		log.Println("Stopping Node")
		log.Println("Node Stopped with error:", blockchain.tmNode.Stop())
	}()
}

// Stop gracefully stops the tendermint node at the next commit
func (blockchain *Blockchain) Stop() {
	if blockchain.stopped {
		return
	}
	blockchain.stop()
}

// WaitStop waits for the tendermint node and closes the databases
func (blockchain *Blockchain) WaitStop() error {
	if blockchain.tmNode != nil {
		blockchain.tmNode.Wait()
	}
	return blockchain.Close()
}

// CurrentState returns the state the next block is executed on
func (blockchain *Blockchain) CurrentState() *state.CheckState {
	blockchain.lock.RLock()
	defer blockchain.lock.RUnlock()

	return blockchain.stateCheck
}

func (blockchain *Blockchain) UpdateVersions() []*appdb.Version {
	return blockchain.appDB.GetVersions()
}

// GetStateForHeight returns the committed state at height, or the current state for 0
func (blockchain *Blockchain) GetStateForHeight(height uint64) (*state.CheckState, error) {
	if height > 0 {
		s, err := state.NewCheckStateAtHeight(height, blockchain.storages.StateDB())
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return blockchain.CurrentState(), nil
}

// Height returns current height of the ledger
func (blockchain *Blockchain) Height() uint64 {
	return atomic.LoadUint64(&blockchain.height)
}

// BlockTime returns the header time of the block being executed
func (blockchain *Blockchain) BlockTime() time.Time {
	blockchain.lock.RLock()
	defer blockchain.lock.RUnlock()

	return blockchain.blockTime
}

// SetTmNode sets Tendermint node
func (blockchain *Blockchain) SetTmNode(node *tmNode.Node) {
	blockchain.tmNode = node
	blockchain.rpcClient = rpc.New(node)
}

// GetEventsDB returns current EventsDB
func (blockchain *Blockchain) GetEventsDB() events.IEventsDB {
	return blockchain.eventsDB
}

func (blockchain *Blockchain) SetStatisticData(statisticData *statistics.Data) *statistics.Data {
	blockchain.statisticData = statisticData
	return blockchain.statisticData
}

func (blockchain *Blockchain) StatisticData() *statistics.Data {
	return blockchain.statisticData
}

// GetDbOpts returns leveldb options for the state and events databases
func GetDbOpts(memLimit int) *opt.Options {
	if memLimit < 1024 {
		panic(fmt.Sprintf("Not enough memory given to StateDB. Expected >1024M, given %d", memLimit))
	}
	return &opt.Options{
		OpenFilesCacheCapacity: memLimit,
		BlockCacheCapacity:     memLimit / 2 * opt.MiB,
		WriteBuffer:            memLimit / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	}
}
