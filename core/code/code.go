package code

import (
	"errors"
	"strconv"
)

// Codes for transaction checks and delivers responses
const (
	// general
	OK                     uint32 = 0
	WrongNonce             uint32 = 101
	TxTooLarge             uint32 = 105
	DecodeError            uint32 = 106
	UnknownTransactionType uint32 = 108
	InvalidSignature       uint32 = 109
	NonceOverflow          uint32 = 110

	// asset collaborator
	TransferFailed        uint32 = 150
	InsufficientFunds     uint32 = 151
	InsufficientAllowance uint32 = 152
	InvalidAmount         uint32 = 153

	// roles
	NotAuthorized      uint32 = 201
	NotCandidateOwner  uint32 = 202
	WrongFallbackDelay uint32 = 203

	// deposits
	ZeroDeposit           uint32 = 301
	DepositNotFound       uint32 = 302
	DepositNonceOverflow  uint32 = 303
	NotOwnerOfDeposit     uint32 = 304
	FallbackMechanismIdle uint32 = 305

	// withdrawal roots
	ZeroRoot          uint32 = 401
	WrongGeneration   uint32 = 402
	RootAlreadyExists uint32 = 403
	NothingToRenounce uint32 = 404

	// withdrawals
	AccountNonceExceeded uint32 = 501
	OverBudget           uint32 = 502
	RootHashUnauthorized uint32 = 503
	NonceNotAuthorized   uint32 = 504
	BudgetOverflow       uint32 = 505
	BudgetUnderflow      uint32 = 506
	CumulativeOverflow   uint32 = 507

	// fallback
	FallbackMechanismActive uint32 = 601
	MaxDepositDecreased     uint32 = 602
	FutureDeposits          uint32 = 603
	LifetimeLimitReached    uint32 = 604
)

// Kind groups codes into the categories callers branch on.
type Kind byte

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindSequence
	KindState
	KindValidation
	KindArithmetic
	KindNotFound
	KindTransfer
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationError"
	case KindSequence:
		return "SequenceError"
	case KindState:
		return "StateError"
	case KindValidation:
		return "ValidationError"
	case KindArithmetic:
		return "ArithmeticError"
	case KindNotFound:
		return "NotFoundError"
	case KindTransfer:
		return "TransferError"
	case KindDecode:
		return "DecodeError"
	}

	return "UnknownError"
}

var kinds = map[uint32]Kind{
	WrongNonce:             KindSequence,
	TxTooLarge:             KindDecode,
	DecodeError:            KindDecode,
	UnknownTransactionType: KindDecode,
	InvalidSignature:       KindDecode,
	NonceOverflow:          KindArithmetic,

	TransferFailed:        KindTransfer,
	InsufficientFunds:     KindTransfer,
	InsufficientAllowance: KindTransfer,
	InvalidAmount:         KindValidation,

	NotAuthorized:      KindAuthorization,
	NotCandidateOwner:  KindAuthorization,
	WrongFallbackDelay: KindValidation,

	ZeroDeposit:           KindValidation,
	DepositNotFound:       KindNotFound,
	DepositNonceOverflow:  KindArithmetic,
	NotOwnerOfDeposit:     KindAuthorization,
	FallbackMechanismIdle: KindState,

	ZeroRoot:          KindValidation,
	WrongGeneration:   KindSequence,
	RootAlreadyExists: KindValidation,
	NothingToRenounce: KindNotFound,

	AccountNonceExceeded: KindSequence,
	OverBudget:           KindValidation,
	RootHashUnauthorized: KindValidation,
	NonceNotAuthorized:   KindSequence,
	BudgetOverflow:       KindArithmetic,
	BudgetUnderflow:      KindArithmetic,
	CumulativeOverflow:   KindArithmetic,

	FallbackMechanismActive: KindState,
	MaxDepositDecreased:     KindSequence,
	FutureDeposits:          KindSequence,
	LifetimeLimitReached:    KindValidation,
}

// KindOfCode returns the category of c.
func KindOfCode(c uint32) Kind {
	return kinds[c]
}

// Error is a rejected operation. Log is the human readable reason, Info the structured payload
// that is JSON encoded into responses.
type Error struct {
	Code uint32
	Log  string
	Info interface{}
}

// New creates an error for code c.
func New(c uint32, log string, info interface{}) *Error {
	return &Error{Code: c, Log: log, Info: info}
}

func (e *Error) Error() string {
	return e.Log
}

func (e *Error) Kind() Kind {
	return KindOfCode(e.Code)
}

// KindOf returns the category of err, or KindUnknown if err does not carry a code.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}

// CodeOf returns the code carried by err, or OK if there is none.
func CodeOf(err error) uint32 {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return OK
}

type wrongNonce struct {
	Code          string `json:"code,omitempty"`
	ExpectedNonce string `json:"expected_nonce,omitempty"`
	GotNonce      string `json:"got_nonce,omitempty"`
}

func NewWrongNonce(expected string, got string) *wrongNonce {
	return &wrongNonce{Code: strconv.Itoa(int(WrongNonce)), ExpectedNonce: expected, GotNonce: got}
}

type txTooLarge struct {
	Code        string `json:"code,omitempty"`
	MaxTxLength string `json:"max_tx_length,omitempty"`
	GotTxLength string `json:"got_tx_length,omitempty"`
}

func NewTxTooLarge(max string, got string) *txTooLarge {
	return &txTooLarge{Code: strconv.Itoa(int(TxTooLarge)), MaxTxLength: max, GotTxLength: got}
}

type decodeError struct {
	Code string `json:"code,omitempty"`
}

func NewDecodeError() *decodeError {
	return &decodeError{Code: strconv.Itoa(int(DecodeError))}
}

type unknownTransactionType struct {
	Code string `json:"code,omitempty"`
	Type string `json:"type,omitempty"`
}

func NewUnknownTransactionType(txType string) *unknownTransactionType {
	return &unknownTransactionType{Code: strconv.Itoa(int(UnknownTransactionType)), Type: txType}
}

type notAuthorized struct {
	Code     string   `json:"code,omitempty"`
	Sender   string   `json:"sender,omitempty"`
	Required []string `json:"required,omitempty"`
}

// NewNotAuthorized reports that sender holds none of the required roles.
func NewNotAuthorized(sender string, required ...string) *notAuthorized {
	return &notAuthorized{Code: strconv.Itoa(int(NotAuthorized)), Sender: sender, Required: required}
}

type notCandidateOwner struct {
	Code      string `json:"code,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

func NewNotCandidateOwner(sender string, candidate string) *notCandidateOwner {
	return &notCandidateOwner{Code: strconv.Itoa(int(NotCandidateOwner)), Sender: sender, Candidate: candidate}
}

type simpleError struct {
	Code string `json:"code,omitempty"`
}

// NewSimple is the payload of codes that carry nothing but themselves.
func NewSimple(c uint32) *simpleError {
	return &simpleError{Code: strconv.Itoa(int(c))}
}

type depositNotFound struct {
	Code  string `json:"code,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

func NewDepositNotFound(nonce string) *depositNotFound {
	return &depositNotFound{Code: strconv.Itoa(int(DepositNotFound)), Nonce: nonce}
}

type notOwnerOfDeposit struct {
	Code      string `json:"code,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Depositor string `json:"depositor,omitempty"`
	Sender    string `json:"sender,omitempty"`
}

func NewNotOwnerOfDeposit(nonce, depositor, sender string) *notOwnerOfDeposit {
	return &notOwnerOfDeposit{Code: strconv.Itoa(int(NotOwnerOfDeposit)), Nonce: nonce, Depositor: depositor, Sender: sender}
}

type wrongGeneration struct {
	Code     string `json:"code,omitempty"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
}

func NewWrongGeneration(expected, got string) *wrongGeneration {
	return &wrongGeneration{Code: strconv.Itoa(int(WrongGeneration)), Expected: expected, Got: got}
}

type rootAlreadyExists struct {
	Code       string `json:"code,omitempty"`
	Root       string `json:"root,omitempty"`
	Generation string `json:"generation,omitempty"`
}

func NewRootAlreadyExists(root, generation string) *rootAlreadyExists {
	return &rootAlreadyExists{Code: strconv.Itoa(int(RootAlreadyExists)), Root: root, Generation: generation}
}

type accountNonce struct {
	Code         string `json:"code,omitempty"`
	Account      string `json:"account,omitempty"`
	Progress     string `json:"progress,omitempty"`
	Generation   string `json:"generation,omitempty"`
	AccountNonce string `json:"account_nonce,omitempty"`
}

// NewAccountNonceExceeded reports a stored progress above the presented authorization nonce.
func NewAccountNonceExceeded(account, progress, nonce string) *accountNonce {
	return &accountNonce{Code: strconv.Itoa(int(AccountNonceExceeded)), Account: account, Progress: progress, AccountNonce: nonce}
}

// NewNonceNotAuthorized reports an authorization nonce not covered by the root's generation.
func NewNonceNotAuthorized(account, generation, nonce string) *accountNonce {
	return &accountNonce{Code: strconv.Itoa(int(NonceNotAuthorized)), Account: account, Generation: generation, AccountNonce: nonce}
}

type overBudget struct {
	Code   string `json:"code,omitempty"`
	Budget string `json:"budget,omitempty"`
	Amount string `json:"amount,omitempty"`
}

func NewOverBudget(budget, amount string) *overBudget {
	return &overBudget{Code: strconv.Itoa(int(OverBudget)), Budget: budget, Amount: amount}
}

type rootHashUnauthorized struct {
	Code string `json:"code,omitempty"`
	Root string `json:"root,omitempty"`
}

func NewRootHashUnauthorized(root string) *rootHashUnauthorized {
	return &rootHashUnauthorized{Code: strconv.Itoa(int(RootHashUnauthorized)), Root: root}
}

type arithmetic struct {
	Code  string `json:"code,omitempty"`
	Value string `json:"value,omitempty"`
	Delta string `json:"delta,omitempty"`
}

// NewArithmetic is the payload of overflow and underflow codes.
func NewArithmetic(c uint32, value, delta string) *arithmetic {
	return &arithmetic{Code: strconv.Itoa(int(c)), Value: value, Delta: delta}
}

type maxDeposit struct {
	Code         string `json:"code,omitempty"`
	Current      string `json:"current,omitempty"`
	Requested    string `json:"requested,omitempty"`
	DepositNonce string `json:"deposit_nonce,omitempty"`
}

func NewMaxDepositDecreased(current, requested string) *maxDeposit {
	return &maxDeposit{Code: strconv.Itoa(int(MaxDepositDecreased)), Current: current, Requested: requested}
}

func NewFutureDeposits(depositNonce, requested string) *maxDeposit {
	return &maxDeposit{Code: strconv.Itoa(int(FutureDeposits)), DepositNonce: depositNonce, Requested: requested}
}

type fallbackState struct {
	Code       string `json:"code,omitempty"`
	SetDate    string `json:"set_date,omitempty"`
	Delay      string `json:"delay,omitempty"`
	ActiveFrom string `json:"active_from,omitempty"`
}

// NewFallbackState is the payload of FallbackMechanismActive and FallbackMechanismIdle.
func NewFallbackState(c uint32, setDate, delay, activeFrom string) *fallbackState {
	return &fallbackState{Code: strconv.Itoa(int(c)), SetDate: setDate, Delay: delay, ActiveFrom: activeFrom}
}

type lifetimeLimit struct {
	Code                string `json:"code,omitempty"`
	Account             string `json:"account,omitempty"`
	CumulativeWithdrawn string `json:"cumulative_withdrawn,omitempty"`
	MaxCumulative       string `json:"max_cumulative,omitempty"`
}

func NewLifetimeLimitReached(account, cumulative, maxCumulative string) *lifetimeLimit {
	return &lifetimeLimit{Code: strconv.Itoa(int(LifetimeLimitReached)), Account: account, CumulativeWithdrawn: cumulative, MaxCumulative: maxCumulative}
}

type transferFailed struct {
	Code    string `json:"code,omitempty"`
	Account string `json:"account,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func NewTransferFailed(c uint32, account, amount, reason string) *transferFailed {
	return &transferFailed{Code: strconv.Itoa(int(c)), Account: account, Amount: amount, Reason: reason}
}
