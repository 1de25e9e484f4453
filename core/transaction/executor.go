package transaction

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/flexa/capacity-smart-contracts/core/code"
	"github.com/flexa/capacity-smart-contracts/core/events"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/helpers"
	abcTypes "github.com/tendermint/tendermint/abci/types"
)

const (
	maxTxLength = 8192
)

// Response represents standard response from tx delivery/check
type Response struct {
	Code   uint32                    `json:"code,omitempty"`
	Data   []byte                    `json:"data,omitempty"`
	Log    string                    `json:"log,omitempty"`
	Info   string                    `json:"-"`
	Tags   []abcTypes.EventAttribute `json:"tags,omitempty"`
	Events events.Events             `json:"-"`

	// cause is the collaborator error a transfer failed with
	cause error
}

// Error returns nil for successful responses. A failed asset transfer yields the collaborator's
// error unchanged, every other failure a *code.Error.
func (r Response) Error() error {
	if r.Code == code.OK {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}

	return code.New(r.Code, r.Log, json.RawMessage(r.Info))
}

type Executor struct {
	decodeTxFunc func(txType TxType) (Data, bool)
}

func NewExecutor(decodeTxFunc func(txType TxType) (Data, bool)) *Executor {
	return &Executor{decodeTxFunc: decodeTxFunc}
}

// RunTx decodes, authenticates and executes a signed transaction in given context. The sender's
// transaction nonce advances only when a delivered transaction succeeds.
func (e *Executor) RunTx(context state.Interface, rawTx []byte, env *Env, currentMempool *sync.Map) Response {
	lenRawTx := len(rawTx)
	if lenRawTx > maxTxLength {
		return Response{
			Code: code.TxTooLarge,
			Log:  fmt.Sprintf("TX length is over %d bytes", maxTxLength),
			Info: EncodeError(code.NewTxTooLarge(fmt.Sprintf("%d", maxTxLength), fmt.Sprintf("%d", lenRawTx))),
		}
	}

	tx, err := e.DecodeFromBytes(rawTx)
	if errors.Is(err, ErrUnknownTxType) {
		txType := "unknown"
		if envelope, err := DecodeFromBytesWithoutSig(rawTx); err == nil {
			txType = envelope.Type.String()
		}
		return Response{
			Code: code.UnknownTransactionType,
			Log:  err.Error(),
			Info: EncodeError(code.NewUnknownTransactionType(txType)),
		}
	}
	if err != nil {
		return Response{
			Code: code.DecodeError,
			Log:  err.Error(),
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	sender, err := tx.Sender()
	if err != nil {
		return Response{
			Code: code.InvalidSignature,
			Log:  err.Error(),
			Info: EncodeError(code.NewSimple(code.InvalidSignature)),
		}
	}

	var checkState *state.CheckState
	var isCheck bool
	if checkState, isCheck = context.(*state.CheckState); !isCheck {
		checkState = state.NewCheckState(context.(*state.State))
	}

	expectedNonce, err := helpers.IncUint64(checkState.Accounts().GetNonce(sender))
	if err != nil {
		return Response{
			Code: code.NonceOverflow,
			Log:  "Transaction nonce of sender overflows",
			Info: EncodeError(code.NewSimple(code.NonceOverflow)),
		}
	}
	if expectedNonce != tx.Nonce {
		return Response{
			Code: code.WrongNonce,
			Log:  fmt.Sprintf("Unexpected nonce. Expected: %d, got %d.", expectedNonce, tx.Nonce),
			Info: EncodeError(code.NewWrongNonce(fmt.Sprintf("%d", expectedNonce), fmt.Sprintf("%d", tx.Nonce))),
		}
	}

	response := tx.decodedData.Run(tx, context, env)
	if response.Code != code.OK {
		return response
	}

	if isCheck {
		// one transaction per sender per block keeps nonces in order
		if currentMempool != nil {
			if _, has := currentMempool.LoadOrStore(sender, true); has {
				return Response{
					Code: code.WrongNonce,
					Log:  fmt.Sprintf("Tx from %s already exists in mempool", sender.String()),
					Info: EncodeError(code.NewWrongNonce(strconv.FormatUint(expectedNonce, 10), strconv.FormatUint(tx.Nonce, 10))),
				}
			}
		}
		response.Tags = nil
		return response
	}

	context.(*state.State).Accounts.SetNonce(sender, tx.Nonce)

	response.Tags = append(response.Tags,
		abcTypes.EventAttribute{Key: []byte("tx.from"), Value: []byte(hex.EncodeToString(sender[:])), Index: true},
		abcTypes.EventAttribute{Key: []byte("tx.type"), Value: []byte(hex.EncodeToString([]byte{byte(tx.decodedData.TxType())})), Index: true},
	)

	return response
}

// Execute runs a transaction whose sender is already trusted, without envelope checks.
func (e *Executor) Execute(context state.Interface, tx *Transaction, env *Env) Response {
	if tx.decodedData == nil {
		return Response{
			Code: code.DecodeError,
			Log:  "transaction has no data",
			Info: EncodeError(code.NewDecodeError()),
		}
	}

	return tx.decodedData.Run(tx, context, env)
}

// EncodeError encodes error to json
func EncodeError(data interface{}) string {
	marshaled, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return string(marshaled)
}
