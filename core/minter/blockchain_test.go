package minter

import (
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	abciTypes "github.com/tendermint/tendermint/abci/types"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
)

var genesisTime = time.Unix(1564352876, 0)

type testChain struct {
	app     *Blockchain
	storage *utils.Storage
	owner   *btcec.PrivateKey
	alice   *btcec.PrivateKey
	height  int64
	time    time.Time
}

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()

	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	return key
}

func address(key *btcec.PrivateKey) types.Address {
	return transaction.PubKeyToAddress(key.PubKey())
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig().SetRoot(t.TempDir())
	cfg.KeepLastStates = 10
	cfg.StateCacheSize = 1024
	return cfg
}

func initTestChain(t *testing.T) *testChain {
	t.Helper()

	storage := utils.NewStorage(t.TempDir(), "")
	storage.InitMemDB()

	chain := &testChain{
		storage: storage,
		owner:   newKey(t),
		alice:   newKey(t),
		time:    genesisTime,
	}

	chain.app = NewLedgerBlockchain(storage, testConfig(t), nil, nil)
	chain.app.SetStatisticData(statistics.New(prometheus.NewRegistry()))

	appState := types.AppState{
		Owner:               address(chain.owner),
		WithdrawalPublisher: address(chain.owner),
		FallbackPublisher:   address(chain.owner),
		LimitPublisher:      address(chain.owner),
		Budget:              "0",
		FallbackDelay:       types.DefaultFallbackDelay,
		Balances: []types.Balance{
			{Address: address(chain.alice), Balance: "1000", Allowance: "1000"},
			{Address: assets.CustodyAddress, Balance: "0", Allowance: "0"},
		},
	}
	appStateBytes, err := tmjson.Marshal(appState)
	require.NoError(t, err)

	chain.app.InitChain(abciTypes.RequestInitChain{
		Time:          genesisTime,
		ChainId:       "ledger-test",
		AppStateBytes: appStateBytes,
		InitialHeight: 1,
	})

	return chain
}

// block runs one block with given raw transactions and returns their results.
func (c *testChain) block(t *testing.T, txs ...[]byte) []abciTypes.ResponseDeliverTx {
	t.Helper()

	c.height++
	c.time = c.time.Add(5 * time.Second)

	c.app.BeginBlock(abciTypes.RequestBeginBlock{
		Header: tmproto.Header{Height: c.height, Time: c.time},
	})

	var responses []abciTypes.ResponseDeliverTx
	for _, tx := range txs {
		responses = append(responses, c.app.DeliverTx(abciTypes.RequestDeliverTx{Tx: tx}))
	}

	c.app.EndBlock(abciTypes.RequestEndBlock{Height: c.height})
	c.app.Commit()

	return responses
}

func signedTx(t *testing.T, key *btcec.PrivateKey, nonce uint64, data transaction.Data) []byte {
	t.Helper()

	tx, err := transaction.NewSignedTransaction(nonce, data, key)
	require.NoError(t, err)

	encoded, err := tx.Serialize()
	require.NoError(t, err)
	return encoded
}

func TestBlockchainInitChain(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)

	cs := chain.app.CurrentState()
	require.Equal(t, address(chain.owner), cs.Roles().Owner())
	require.Equal(t, genesisTime.Unix(), cs.Fallback().SetDate())

	chain.block(t)

	info := chain.app.Info(abciTypes.RequestInfo{})
	require.EqualValues(t, 1, info.LastBlockHeight)
	require.NotEmpty(t, info.LastBlockAppHash)
	require.EqualValues(t, 1, chain.app.Height())
}

func TestBlockchainDeliverDeposit(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)

	responses := chain.block(t, signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "300"}))
	require.Len(t, responses, 1)
	if responses[0].Code != code.OK {
		t.Fatalf("deposit failed: %s", responses[0].Log)
	}
	require.Equal(t, "1", string(responses[0].Data))

	var hasDepositEvent bool
	for _, event := range responses[0].Events {
		if event.Type == events.TypeDeposit {
			hasDepositEvent = true
		}
	}
	require.True(t, hasDepositEvent)

	stored := chain.app.GetEventsDB().LoadEvents(1)
	require.Len(t, stored, 1)
	deposit, ok := stored[0].(*events.DepositEvent)
	require.True(t, ok)
	require.Equal(t, address(chain.alice), deposit.Depositor)
	require.Equal(t, "300", deposit.Amount)
	require.EqualValues(t, 1, deposit.Nonce)

	cs := chain.app.CurrentState()
	require.Equal(t, big.NewInt(700), cs.Assets().GetBalance(address(chain.alice)))
	require.Equal(t, big.NewInt(300), cs.Assets().GetBalance(assets.CustodyAddress))
	require.NotNil(t, cs.Deposits().Get(1))
}

func TestBlockchainRejectsWrongNonce(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)

	responses := chain.block(t,
		signedTx(t, chain.alice, 2, &transaction.DepositData{Amount: "1"}),
		signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "0"}),
	)
	require.Equal(t, code.WrongNonce, responses[0].Code)
	require.Equal(t, code.ZeroDeposit, responses[1].Code)

	// a failed transaction does not consume the sender's nonce
	responses = chain.block(t, signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "1"}))
	require.Equal(t, code.OK, responses[0].Code)

	require.Empty(t, chain.app.GetEventsDB().LoadEvents(1))
	require.Len(t, chain.app.GetEventsDB().LoadEvents(2), 1)
}

func TestBlockchainCheckTx(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)
	chain.block(t)

	response := chain.app.CheckTx(abciTypes.RequestCheckTx{Tx: signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "5"})})
	require.Equal(t, code.OK, response.Code)

	// second tx of the same sender waits for the next block
	response = chain.app.CheckTx(abciTypes.RequestCheckTx{Tx: signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "6"})})
	require.Equal(t, code.WrongNonce, response.Code)

	response = chain.app.CheckTx(abciTypes.RequestCheckTx{Tx: []byte{0x01, 0x02}})
	require.Equal(t, code.DecodeError, response.Code)

	// checking never touches the ledger
	require.Equal(t, big.NewInt(1000), chain.app.CurrentState().Assets().GetBalance(address(chain.alice)))
	require.EqualValues(t, 0, chain.app.CurrentState().App().GetDepositNonce())
}

func TestBlockchainGetStateForHeight(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)
	chain.block(t, signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "10"}))
	chain.block(t, signedTx(t, chain.alice, 2, &transaction.DepositData{Amount: "20"}))

	first, err := chain.app.GetStateForHeight(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, first.App().GetDepositNonce())

	current, err := chain.app.GetStateForHeight(0)
	require.NoError(t, err)
	require.EqualValues(t, 2, current.App().GetDepositNonce())

	_, err = chain.app.GetStateForHeight(100)
	require.Error(t, err)
}

func TestBlockchainRestart(t *testing.T) {
	t.Parallel()

	chain := initTestChain(t)
	chain.block(t, signedTx(t, chain.alice, 1, &transaction.DepositData{Amount: "10"}))
	hash := chain.app.Info(abciTypes.RequestInfo{}).LastBlockAppHash

	restarted := NewLedgerBlockchain(chain.storage, testConfig(t), nil, nil)
	info := restarted.Info(abciTypes.RequestInfo{})
	require.EqualValues(t, 1, info.LastBlockHeight)
	require.Equal(t, hash, info.LastBlockAppHash)
	require.EqualValues(t, 1, restarted.CurrentState().App().GetDepositNonce())
	require.EqualValues(t, 1, restarted.CurrentState().Accounts().GetNonce(address(chain.alice)))

	chain.app = restarted
	responses := chain.block(t, signedTx(t, chain.alice, 2, &transaction.DepositData{Amount: "10"}))
	require.Equal(t, code.OK, responses[0].Code)
	require.Equal(t, "2", string(responses[0].Data))
}

func TestGetDbOpts(t *testing.T) {
	t.Parallel()

	opts := GetDbOpts(1024)
	require.Equal(t, 1024, opts.OpenFilesCacheCapacity)
	require.NotNil(t, opts.Filter)

	require.Panics(t, func() { GetDbOpts(10) })
}
