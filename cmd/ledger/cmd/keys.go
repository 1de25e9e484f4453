package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/flexa/capacity-smart-contracts/core/transaction"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/spf13/cobra"
)

var KeysCommand = &cobra.Command{
	Use:   "keys",
	Short: "Generate a secp256k1 key for signing ledger transactions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := btcec.NewPrivateKey(btcec.S256())
		if err != nil {
			return err
		}

		fmt.Printf("private key: %s\naddress:     %s\n", hex.EncodeToString(key.Serialize()), keyAddress(key).String())
		return nil
	},
}

func keyAddress(key *btcec.PrivateKey) types.Address {
	return transaction.PubKeyToAddress(key.PubKey())
}

func parsePrivateKey(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	if len(raw) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key should be %d bytes, got %d", btcec.PrivKeyBytesLen, len(raw))
	}

	key, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
	return key, nil
}
