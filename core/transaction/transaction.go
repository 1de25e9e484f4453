package transaction

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/flexa/capacity-smart-contracts/core/asset"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/flexa/capacity-smart-contracts/merkle"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/tendermint/go-amino"
)

// TxType of transaction is determined by a single byte.
type TxType byte

func (t TxType) String() string {
	return "0x" + hex.EncodeToString([]byte{byte(t)})
}

func (t TxType) UInt64() uint64 {
	return uint64(t)
}

const (
	TypeAuthorizeOwnershipTransfer TxType = 0x01
	TypeAcceptOwnership            TxType = 0x02
	TypeSetWithdrawalPublisher     TxType = 0x03
	TypeSetFallbackPublisher       TxType = 0x04
	TypeSetLimitPublisher          TxType = 0x05
	TypeSetFallbackDelay           TxType = 0x06
	TypeDeposit                    TxType = 0x07
	TypeRefundPendingDeposit       TxType = 0x08
	TypeAddWithdrawalRoot          TxType = 0x09
	TypeRemoveWithdrawalRoots      TxType = 0x0A
	TypeRenounceAuthorization      TxType = 0x0B
	TypeWithdraw                   TxType = 0x0C
	TypeModifyBudget               TxType = 0x0D
	TypeSetFallbackRoot            TxType = 0x0E
	TypeResetFallbackDate          TxType = 0x0F
	TypeWithdrawFallback           TxType = 0x10
	TypeApprove                    TxType = 0x11
)

var (
	ErrInvalidSig = errors.New("invalid transaction signature")
)

var cdc = amino.NewCodec()

type RawData []byte

type Transaction struct {
	Nonce     uint64
	Type      TxType
	Data      RawData
	Signature []byte

	decodedData Data
	sender      *types.Address
}

// Env is what an operation sees of the world besides the ledger state.
type Env struct {
	// Time is read once per operation, it is the block time on a node.
	Time   time.Time
	Height uint64
	// Assets moves funds in and out of custody. It is nil while checking transactions.
	Assets asset.Transfer
}

type Data interface {
	String() string
	TxType() TxType
	basicCheck(tx *Transaction, context *state.CheckState, env *Env) *Response
	Run(tx *Transaction, context state.Interface, env *Env) Response
}

// NewTransaction wraps data into an unsigned transaction from a sender the caller already
// trusts, as done by the embedded ledger.
func NewTransaction(sender types.Address, data Data) *Transaction {
	return &Transaction{
		Type:        data.TxType(),
		decodedData: data,
		sender:      &sender,
	}
}

// NewSignedTransaction encodes data and signs the transaction with key.
func NewSignedTransaction(nonce uint64, data Data, key *btcec.PrivateKey) (*Transaction, error) {
	encoded, err := cdc.MarshalBinaryBare(data)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Nonce:       nonce,
		Type:        data.TxType(),
		Data:        encoded,
		decodedData: data,
	}

	if err := tx.Sign(key); err != nil {
		return nil, err
	}

	return tx, nil
}

func (tx *Transaction) String() string {
	sender, _ := tx.Sender()

	return fmt.Sprintf("TX nonce:%d from:%s type:%s data:%s",
		tx.Nonce, sender.String(), tx.Type.String(), tx.decodedData.String())
}

// Hash identifies a serialized transaction.
func (tx *Transaction) Hash() types.Hash {
	encoded, err := tx.Serialize()
	if err != nil {
		panic(err)
	}
	return merkle.Keccak256(encoded)
}

func (tx *Transaction) Serialize() ([]byte, error) {
	return cdc.MarshalBinaryBare(tx)
}

func (tx *Transaction) signingHash() types.Hash {
	encoded, err := cdc.MarshalBinaryBare(struct {
		Nonce uint64
		Type  TxType
		Data  RawData
	}{tx.Nonce, tx.Type, tx.Data})
	if err != nil {
		panic(err)
	}
	return merkle.Keccak256(encoded)
}

func (tx *Transaction) Sign(key *btcec.PrivateKey) error {
	hash := tx.signingHash()
	sig, err := btcec.SignCompact(btcec.S256(), key, hash[:], false)
	if err != nil {
		return err
	}

	tx.Signature = sig
	sender := PubKeyToAddress(key.PubKey())
	tx.sender = &sender
	return nil
}

// Sender returns the address recovered from the signature.
func (tx *Transaction) Sender() (types.Address, error) {
	if tx.sender != nil {
		return *tx.sender, nil
	}

	if len(tx.Signature) != 65 {
		return types.Address{}, ErrInvalidSig
	}

	hash := tx.signingHash()
	pub, _, err := btcec.RecoverCompact(btcec.S256(), tx.Signature, hash[:])
	if err != nil {
		return types.Address{}, ErrInvalidSig
	}

	sender := PubKeyToAddress(pub)
	tx.sender = &sender
	return sender, nil
}

func (tx *Transaction) SetDecodedData(data Data) {
	tx.decodedData = data
}

func (tx *Transaction) GetDecodedData() Data {
	return tx.decodedData
}

// PubKeyToAddress is the last 20 bytes of the keccak256 hash of the uncompressed public key.
func PubKeyToAddress(pub *btcec.PublicKey) types.Address {
	return types.BytesToAddress(merkle.Keccak256(pub.SerializeUncompressed()[1:]).Bytes()[12:])
}
