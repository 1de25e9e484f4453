package transaction

import (
	"errors"
	"fmt"
)

var ErrUnknownTxType = errors.New("unknown transaction type")

// GetData returns an empty data value for the transaction type.
func GetData(txType TxType) (Data, bool) {
	switch txType {
	case TypeAuthorizeOwnershipTransfer:
		return &AuthorizeOwnershipTransferData{}, true
	case TypeAcceptOwnership:
		return &AcceptOwnershipData{}, true
	case TypeSetWithdrawalPublisher:
		return &SetWithdrawalPublisherData{}, true
	case TypeSetFallbackPublisher:
		return &SetFallbackPublisherData{}, true
	case TypeSetLimitPublisher:
		return &SetLimitPublisherData{}, true
	case TypeSetFallbackDelay:
		return &SetFallbackDelayData{}, true
	case TypeDeposit:
		return &DepositData{}, true
	case TypeRefundPendingDeposit:
		return &RefundPendingDepositData{}, true
	case TypeAddWithdrawalRoot:
		return &AddWithdrawalRootData{}, true
	case TypeRemoveWithdrawalRoots:
		return &RemoveWithdrawalRootsData{}, true
	case TypeRenounceAuthorization:
		return &RenounceAuthorizationData{}, true
	case TypeWithdraw:
		return &WithdrawData{}, true
	case TypeModifyBudget:
		return &ModifyBudgetData{}, true
	case TypeSetFallbackRoot:
		return &SetFallbackRootData{}, true
	case TypeResetFallbackDate:
		return &ResetFallbackDateData{}, true
	case TypeWithdrawFallback:
		return &WithdrawFallbackData{}, true
	case TypeApprove:
		return &ApproveData{}, true
	default:
		return nil, false
	}
}

func (e *Executor) DecodeFromBytes(buf []byte) (*Transaction, error) {
	tx, err := DecodeFromBytesWithoutSig(buf)
	if err != nil {
		return nil, err
	}

	data, ok := e.decodeTxFunc(tx.Type)
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownTxType, tx.Type)
	}

	if err := cdc.UnmarshalBinaryBare(tx.Data, data); err != nil {
		return nil, err
	}

	tx.SetDecodedData(data)

	if len(tx.Signature) == 0 {
		return nil, errors.New("incorrect tx signature")
	}

	return tx, nil
}

// DecodeFromBytesWithoutSig reads the envelope only, leaving Data undecoded.
func DecodeFromBytesWithoutSig(buf []byte) (*Transaction, error) {
	var tx Transaction
	if err := cdc.UnmarshalBinaryBare(buf, &tx); err != nil {
		return nil, err
	}

	return &tx, nil
}
