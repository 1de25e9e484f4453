package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var txTypes = map[string]transaction.TxType{
	"authorize_ownership_transfer": transaction.TypeAuthorizeOwnershipTransfer,
	"accept_ownership":             transaction.TypeAcceptOwnership,
	"set_withdrawal_publisher":     transaction.TypeSetWithdrawalPublisher,
	"set_fallback_publisher":       transaction.TypeSetFallbackPublisher,
	"set_limit_publisher":          transaction.TypeSetLimitPublisher,
	"set_fallback_delay":           transaction.TypeSetFallbackDelay,
	"deposit":                      transaction.TypeDeposit,
	"refund_pending_deposit":       transaction.TypeRefundPendingDeposit,
	"add_withdrawal_root":          transaction.TypeAddWithdrawalRoot,
	"remove_withdrawal_roots":      transaction.TypeRemoveWithdrawalRoots,
	"renounce_authorization":       transaction.TypeRenounceAuthorization,
	"withdraw":                     transaction.TypeWithdraw,
	"modify_budget":                transaction.TypeModifyBudget,
	"set_fallback_root":            transaction.TypeSetFallbackRoot,
	"reset_fallback_date":          transaction.TypeResetFallbackDate,
	"withdraw_fallback":            transaction.TypeWithdrawFallback,
	"approve":                      transaction.TypeApprove,
}

// SignCommand prints a signed transaction ready for /send_transaction.
var SignCommand = &cobra.Command{
	Use:   "sign [type] [data json]",
	Short: "Sign a ledger transaction",
	Example: `  ledger sign deposit '{"Amount":"100"}' --key <hex> --nonce 1
  ledger sign withdraw '{"Account":"0x…","Amount":"10","AccountNonce":1,"Proof":[]}' --key <hex> --nonce 2`,
	Args: cobra.RangeArgs(1, 2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		keyHex, err := cmd.Flags().GetString("key")
		if err != nil {
			return err
		}
		nonce, err := cmd.Flags().GetUint64("nonce")
		if err != nil {
			return err
		}

		data := "{}"
		if len(args) == 2 {
			data = args[1]
		}

		tx, err := buildTx(keyHex, nonce, args[0], data)
		if err != nil {
			return err
		}

		fmt.Println(tx)
		return nil
	},
}

func init() {
	SignCommand.Flags().String("key", "", "hex encoded secp256k1 private key")
	SignCommand.Flags().Uint64("nonce", 1, "transaction nonce of the signer")
	_ = SignCommand.MarkFlagRequired("key")
}

func buildTx(keyHex string, nonce uint64, txTypeName string, dataJSON string) (string, error) {
	txType, ok := txTypes[strings.ToLower(txTypeName)]
	if !ok {
		return "", fmt.Errorf("unknown transaction type %q", txTypeName)
	}

	key, err := parsePrivateKey(keyHex)
	if err != nil {
		return "", errors.Wrap(err, "parse key")
	}

	data, _ := transaction.GetData(txType)
	decoder := json.NewDecoder(strings.NewReader(dataJSON))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(data); err != nil {
		return "", errors.Wrap(err, "parse data")
	}

	tx, err := transaction.NewSignedTransaction(nonce, data, key)
	if err != nil {
		return "", err
	}

	encoded, err := tx.Serialize()
	if err != nil {
		return "", err
	}

	return "0x" + hex.EncodeToString(encoded), nil
}
