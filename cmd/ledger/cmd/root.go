package cmd

import (
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *config.Config

var RootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Custodial staking ledger node",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		home := utils.GetLedgerHome()

		v := viper.New()
		v.SetConfigFile(utils.GetLedgerConfigPath())
		v.SetEnvPrefix("LEDGER")
		v.AutomaticEnv()

		cfg = config.GetConfig(home)

		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, "read config")
		}

		if err := v.Unmarshal(cfg); err != nil {
			return errors.Wrap(err, "parse config")
		}
		cfg.SetRoot(home)

		return cfg.ValidateBasic()
	},
}
