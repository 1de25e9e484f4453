package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/minter"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	abciTypes "github.com/tendermint/tendermint/abci/types"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

var genesisTime = time.Unix(1564352876, 0)

// localClient checks transactions with the application directly instead of a mempool and
// indexes delivered transactions in memory.
type localClient struct {
	app     *minter.Blockchain
	err     error
	txs     map[string]*ctypes.ResultTx
	blocks  map[int64]*ctypes.ResultBlock
	pending tmtypes.Txs
}

func (l *localClient) Status(context.Context) (*ctypes.ResultStatus, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &ctypes.ResultStatus{
		SyncInfo: ctypes.SyncInfo{
			LatestBlockHeight: int64(l.app.Height()),
			LatestBlockTime:   genesisTime,
		},
	}, nil
}

func (l *localClient) BroadcastTxSync(_ context.Context, tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error) {
	if l.err != nil {
		return nil, l.err
	}
	res := l.app.CheckTx(abciTypes.RequestCheckTx{Tx: tx})
	return &ctypes.ResultBroadcastTx{
		Code: res.Code,
		Data: res.Data,
		Log:  res.Log,
		Hash: tx.Hash(),
	}, nil
}

func (l *localClient) Tx(_ context.Context, hash []byte, _ bool) (*ctypes.ResultTx, error) {
	tx, ok := l.txs[hex.EncodeToString(hash)]
	if !ok {
		return nil, errors.New("tx not found")
	}
	return tx, nil
}

func (l *localClient) UnconfirmedTxs(_ context.Context, limit *int) (*ctypes.ResultUnconfirmedTxs, error) {
	txs := l.pending
	if limit != nil && len(txs) > *limit {
		txs = txs[:*limit]
	}
	return &ctypes.ResultUnconfirmedTxs{Count: len(txs), Total: len(l.pending), Txs: txs}, nil
}

func (l *localClient) NetInfo(context.Context) (*ctypes.ResultNetInfo, error) {
	return &ctypes.ResultNetInfo{Listening: true, Listeners: []string{"test"}}, nil
}

func (l *localClient) Block(_ context.Context, height *int64) (*ctypes.ResultBlock, error) {
	block, ok := l.blocks[*height]
	if !ok {
		return nil, errors.New("block not found")
	}
	return block, nil
}

type testAPI struct {
	app      *minter.Blockchain
	client   *localClient
	handler  http.Handler
	registry *prometheus.Registry
	alice    *btcec.PrivateKey
	height   int64
}

func address(key *btcec.PrivateKey) types.Address {
	return transaction.PubKeyToAddress(key.PubKey())
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	storage := utils.NewStorage(t.TempDir(), "")
	storage.InitMemDB()

	cfg := config.DefaultConfig().SetRoot(t.TempDir())
	cfg.KeepLastStates = 10
	cfg.StateCacheSize = 1024

	alice, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	app := minter.NewLedgerBlockchain(storage, cfg, nil, nil)
	app.SetStatisticData(statistics.New(registry))

	owner := types.HexToAddress("0x1000000000000000000000000000000000000001")
	appState, err := tmjson.Marshal(types.AppState{
		Owner:               owner,
		WithdrawalPublisher: owner,
		FallbackPublisher:   owner,
		LimitPublisher:      owner,
		Budget:              "25",
		FallbackDelay:       types.DefaultFallbackDelay,
		Balances: []types.Balance{
			{Address: address(alice), Balance: "1000", Allowance: "1000"},
			{Address: assets.CustodyAddress, Balance: "0", Allowance: "0"},
		},
	})
	require.NoError(t, err)

	app.InitChain(abciTypes.RequestInitChain{Time: genesisTime, AppStateBytes: appState, InitialHeight: 1})

	client := &localClient{
		app:    app,
		txs:    map[string]*ctypes.ResultTx{},
		blocks: map[int64]*ctypes.ResultBlock{},
	}
	api := &testAPI{
		app:      app,
		client:   client,
		handler:  NewService(app, client, cfg, "test", nil).Handlers(registry),
		registry: registry,
		alice:    alice,
	}
	api.block(t)

	return api
}

func (a *testAPI) block(t *testing.T, txs ...[]byte) {
	t.Helper()

	a.height++
	header := tmproto.Header{Height: a.height, Time: genesisTime.Add(time.Duration(a.height) * time.Second)}
	a.app.BeginBlock(abciTypes.RequestBeginBlock{Header: header})

	block := &tmtypes.Block{Header: tmtypes.Header{Height: header.Height, Time: header.Time}}
	for i, tx := range txs {
		res := a.app.DeliverTx(abciTypes.RequestDeliverTx{Tx: tx})
		require.Equal(t, code.OK, res.Code, res.Log)

		a.client.txs[hex.EncodeToString(tmtypes.Tx(tx).Hash())] = &ctypes.ResultTx{
			Hash:     tmtypes.Tx(tx).Hash(),
			Height:   a.height,
			Index:    uint32(i),
			TxResult: res,
			Tx:       tx,
		}
		block.Data.Txs = append(block.Data.Txs, tx)
	}
	a.client.blocks[a.height] = &ctypes.ResultBlock{Block: block}
	a.app.EndBlock(abciTypes.RequestEndBlock{Height: a.height})
	a.app.Commit()
}

func (a *testAPI) deposit(t *testing.T, nonce uint64, amount string) []byte {
	t.Helper()

	tx, err := transaction.NewSignedTransaction(nonce, &transaction.DepositData{Amount: amount}, a.alice)
	require.NoError(t, err)
	encoded, err := tx.Serialize()
	require.NoError(t, err)
	return encoded
}

func (a *testAPI) get(t *testing.T, path string, out interface{}) int {
	t.Helper()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestStatus(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var status StatusResponse
	require.Equal(t, http.StatusOK, api.get(t, "/status", &status))
	require.Equal(t, "test", status.Version)
	require.EqualValues(t, 1, status.LatestBlockHeight)
	require.EqualValues(t, 1, status.InitialHeight)
	require.EqualValues(t, 10, status.KeepLastStates)

	api.client.err = errors.New("node is down")
	require.Equal(t, http.StatusInternalServerError, api.get(t, "/status", nil))
}

func TestLedgerAndAddress(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.block(t, api.deposit(t, 1, "40"))

	var ledger LedgerResponse
	require.Equal(t, http.StatusOK, api.get(t, "/ledger", &ledger))
	require.Equal(t, "25", ledger.Budget)
	require.EqualValues(t, 1, ledger.DepositNonce)
	require.Nil(t, ledger.CandidateOwner)

	var account AddressResponse
	require.Equal(t, http.StatusOK, api.get(t, "/address/"+address(api.alice).String(), &account))
	require.Equal(t, "960", account.Balance)
	require.Equal(t, "960", account.Allowance)
	require.EqualValues(t, 1, account.TransactionCount)
	require.Equal(t, "0", account.CumulativeWithdrawn)

	require.Equal(t, http.StatusBadRequest, api.get(t, "/address/0x1234", nil))
}

func TestDeposits(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.block(t, api.deposit(t, 1, "10"))
	api.block(t, api.deposit(t, 2, "20"))
	api.block(t, api.deposit(t, 3, "30"))

	var page DepositsResponse
	require.Equal(t, http.StatusOK, api.get(t, "/deposits?from=2&limit=5", &page))
	require.EqualValues(t, 3, page.DepositNonce)
	require.Len(t, page.Deposits, 2)
	require.EqualValues(t, 2, page.Deposits[0].Nonce)
	require.Equal(t, "30", page.Deposits[1].Amount)

	// the state of height 2 had a single deposit
	require.Equal(t, http.StatusOK, api.get(t, "/deposits?height=2", &page))
	require.Len(t, page.Deposits, 1)

	var deposit DepositResponse
	require.Equal(t, http.StatusOK, api.get(t, "/deposit/3", &deposit))
	require.Equal(t, address(api.alice), deposit.Depositor)

	require.Equal(t, http.StatusNotFound, api.get(t, "/deposit/4", nil))
	require.Equal(t, http.StatusBadRequest, api.get(t, "/deposits?limit=0", nil))
	require.Equal(t, http.StatusNotFound, api.get(t, "/deposits?height=100", nil))
}

func TestRootsAndFallback(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	var roots RootsResponse
	require.Equal(t, http.StatusOK, api.get(t, "/roots", &roots))
	require.Empty(t, roots.Roots)
	require.EqualValues(t, 0, roots.MaxGeneration)

	var root types.WithdrawalRoot
	require.Equal(t, http.StatusOK, api.get(t, "/root/0x"+hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)), &root))
	require.EqualValues(t, 0, root.Generation)

	var fallback FallbackResponse
	require.Equal(t, http.StatusOK, api.get(t, "/fallback", &fallback))
	require.Equal(t, genesisTime.Unix(), fallback.SetDate)
	require.Equal(t, types.DefaultFallbackDelay, fallback.Delay)
	require.Equal(t, genesisTime.Unix()+int64(types.DefaultFallbackDelay), fallback.ActiveFrom)
}

func TestEventsAndExport(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.block(t, api.deposit(t, 1, "15"))

	var evs struct {
		Height uint64 `json:"height"`
		Events []struct {
			Type  string                 `json:"type"`
			Value map[string]interface{} `json:"value"`
		} `json:"events"`
	}
	require.Equal(t, http.StatusOK, api.get(t, "/events/2", &evs))
	require.Len(t, evs.Events, 1)
	require.Equal(t, "15", evs.Events[0].Value["amount"])

	var exported struct {
		Height   uint64         `json:"height"`
		AppState types.AppState `json:"app_state"`
	}
	require.Equal(t, http.StatusOK, api.get(t, "/export", &exported))
	require.EqualValues(t, 2, exported.Height)
	require.EqualValues(t, 1, exported.AppState.DepositNonce)
	require.Len(t, exported.AppState.PendingDeposits, 1)
	require.NoError(t, exported.AppState.Verify())
}

func TestSendTransaction(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	send := func(tx string) (*httptest.ResponseRecorder, map[string]interface{}) {
		body, _ := json.Marshal(SendTransactionRequest{Tx: tx})
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/send_transaction", bytes.NewReader(body)))

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return rec, out
	}

	rec, out := send("0x" + hex.EncodeToString(api.deposit(t, 1, "5")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0", out["code"])

	rec, out = send("0x" + hex.EncodeToString(api.deposit(t, 7, "5")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "SequenceError", out["error"].(map[string]interface{})["data"].(map[string]interface{})["kind"])

	rec, _ = send("not hex")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.get(t, "/ledger", nil))

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ledger_budget 25")
	require.Contains(t, rec.Body.String(), `path="/ledger"`)
}

func TestTransactionAndBlock(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	raw := api.deposit(t, 1, "12")
	api.block(t, raw)

	var decoded struct {
		Height int64             `json:"height"`
		From   string            `json:"from"`
		Nonce  uint64            `json:"nonce"`
		Type   string            `json:"type"`
		Data   map[string]string `json:"data"`
		Tags   map[string]string `json:"tags"`
	}
	hash := "0x" + hex.EncodeToString(tmtypes.Tx(raw).Hash())
	require.Equal(t, http.StatusOK, api.get(t, "/transaction/"+hash, &decoded))
	require.EqualValues(t, 2, decoded.Height)
	require.Equal(t, address(api.alice).String(), decoded.From)
	require.EqualValues(t, 1, decoded.Nonce)
	require.Equal(t, transaction.TypeDeposit.String(), decoded.Type)
	require.Equal(t, "12", decoded.Data["Amount"])
	require.Equal(t, hex.EncodeToString(address(api.alice).Bytes()), decoded.Tags["tx.from"])

	require.Equal(t, http.StatusNotFound, api.get(t, "/transaction/0xabcd", nil))

	var block struct {
		Height       int64 `json:"height"`
		Transactions []struct {
			Hash string `json:"hash"`
		} `json:"transactions"`
	}
	require.Equal(t, http.StatusOK, api.get(t, "/block/2", &block))
	require.Len(t, block.Transactions, 1)
	require.Equal(t, hash, block.Transactions[0].Hash)

	require.Equal(t, http.StatusBadRequest, api.get(t, "/block/0", nil))
	require.Equal(t, http.StatusNotFound, api.get(t, "/block/50", nil))
}

func TestUnconfirmedTxsAndNetInfo(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.client.pending = tmtypes.Txs{api.deposit(t, 1, "3"), []byte("garbage")}

	var unconfirmed struct {
		Total        int `json:"total"`
		Transactions []struct {
			From string `json:"from"`
			Type string `json:"type"`
		} `json:"transactions"`
	}
	require.Equal(t, http.StatusOK, api.get(t, "/unconfirmed_txs?limit=5", &unconfirmed))
	require.Equal(t, 2, unconfirmed.Total)
	require.Len(t, unconfirmed.Transactions, 2)
	require.Equal(t, address(api.alice).String(), unconfirmed.Transactions[0].From)
	require.Empty(t, unconfirmed.Transactions[1].From)

	var netInfo NetInfoResponse
	require.Equal(t, http.StatusOK, api.get(t, "/net_info", &netInfo))
	require.True(t, netInfo.Listening)
	require.Empty(t, netInfo.Peers)
}
