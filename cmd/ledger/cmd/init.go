package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/state/assets"
	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	tmOS "github.com/tendermint/tendermint/libs/os"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/privval"
	tmTypes "github.com/tendermint/tendermint/types"
)

var InitCommand = &cobra.Command{
	Use:   "init",
	Short: "Create the node keys and a single validator genesis",
	RunE:  initNode,
}

func init() {
	InitCommand.Flags().String("chain-id", "ledger-local", "chain id of the new network")
	InitCommand.Flags().String("owner", "", "owner address")
	InitCommand.Flags().String("withdrawal-publisher", "", "withdrawal publisher address (default is owner)")
	InitCommand.Flags().String("fallback-publisher", "", "fallback publisher address (default is owner)")
	InitCommand.Flags().String("limit-publisher", "", "limit publisher address (default is owner)")
	InitCommand.Flags().String("budget", "0", "initial immediately withdrawable limit")
	InitCommand.Flags().Duration("fallback-delay", time.Duration(types.DefaultFallbackDelay)*time.Second, "fallback withdrawal delay")
	InitCommand.Flags().StringSlice("balance", nil, "asset balance as address=amount, approved in full")
	InitCommand.Flags().Bool("overwrite", false, "overwrite an existing genesis file")
}

func initNode(cmd *cobra.Command, _ []string) error {
	appState, err := appStateFromFlags(cmd)
	if err != nil {
		return err
	}

	chainID, err := cmd.Flags().GetString("chain-id")
	if err != nil {
		return err
	}
	overwrite, err := cmd.Flags().GetBool("overwrite")
	if err != nil {
		return err
	}

	tmConfig := config.GetTmConfig(cfg)
	if tmOS.FileExists(tmConfig.GenesisFile()) && !overwrite {
		return fmt.Errorf("genesis file %s already exists", tmConfig.GenesisFile())
	}

	pv := privval.LoadOrGenFilePV(tmConfig.PrivValidatorKeyFile(), tmConfig.PrivValidatorStateFile())
	nodeKey, err := p2p.LoadOrGenNodeKey(tmConfig.NodeKeyFile())
	if err != nil {
		return errors.Wrap(err, "load node key")
	}

	pubKey, err := pv.GetPubKey()
	if err != nil {
		return err
	}

	now := time.Now()
	appState.FallbackSetDate = now.Unix()

	genesis, err := makeGenesis(chainID, now, 1, appState, []tmTypes.GenesisValidator{{
		Address: pubKey.Address(),
		PubKey:  pubKey,
		Power:   10,
		Name:    cfg.Moniker,
	}})
	if err != nil {
		return err
	}

	if err := genesis.SaveAs(tmConfig.GenesisFile()); err != nil {
		return errors.Wrap(err, "save genesis")
	}

	fmt.Printf("Initialized node %s of chain %s\n", nodeKey.ID(), chainID)
	return nil
}

func appStateFromFlags(cmd *cobra.Command) (types.AppState, error) {
	flags := cmd.Flags()

	address := func(name string, fallback types.Address) (types.Address, error) {
		value, err := flags.GetString(name)
		if err != nil {
			return types.Address{}, err
		}
		if value == "" {
			return fallback, nil
		}
		return types.ParseAddress(value)
	}

	owner, err := address("owner", types.Address{})
	if err != nil {
		return types.AppState{}, err
	}
	if owner.IsZero() {
		return types.AppState{}, errors.New("owner is required")
	}

	appState := types.AppState{Owner: owner}
	if appState.WithdrawalPublisher, err = address("withdrawal-publisher", owner); err != nil {
		return types.AppState{}, err
	}
	if appState.FallbackPublisher, err = address("fallback-publisher", owner); err != nil {
		return types.AppState{}, err
	}
	if appState.LimitPublisher, err = address("limit-publisher", owner); err != nil {
		return types.AppState{}, err
	}
	if appState.Budget, err = flags.GetString("budget"); err != nil {
		return types.AppState{}, err
	}

	delay, err := flags.GetDuration("fallback-delay")
	if err != nil {
		return types.AppState{}, err
	}
	appState.FallbackDelay = uint64(delay / time.Second)

	balances, err := flags.GetStringSlice("balance")
	if err != nil {
		return types.AppState{}, err
	}
	for _, entry := range balances {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return types.AppState{}, fmt.Errorf("invalid balance %q, expected address=amount", entry)
		}
		holder, err := types.ParseAddress(parts[0])
		if err != nil {
			return types.AppState{}, err
		}
		appState.Balances = append(appState.Balances, types.Balance{Address: holder, Balance: parts[1], Allowance: parts[1]})
	}
	appState.Balances = append(appState.Balances, types.Balance{Address: assets.CustodyAddress, Balance: "0", Allowance: "0"})

	return appState, nil
}
