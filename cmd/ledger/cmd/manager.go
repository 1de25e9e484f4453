package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/flexa/capacity-smart-contracts/cli/service"
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/spf13/cobra"
)

var ManagerCommand = &cobra.Command{
	Use:                "manager",
	Short:              "Execute a manager command on the running node",
	DisableFlagParsing: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		newArgs := setParentFlags(cmd, args)
		console, err := service.ConfigureManagerConsole(managerSocket())
		if err != nil {
			return err
		}

		if err := console.Execute(newArgs); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		return nil
	},
}

var ManagerConsole = &cobra.Command{
	Use:                "console",
	Short:              "Interactive manager console of the running node",
	DisableFlagParsing: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = setParentFlags(cmd, args)
		console, err := service.ConfigureManagerConsole(managerSocket())
		if err != nil {
			return err
		}
		return console.Cli(cmd.Context())
	},
}

func managerSocket() string {
	return utils.GetLedgerHome() + "/manager.sock"
}

// setParentFlags applies --flag=value arguments that belong to the root command, since flag
// parsing is disabled for manager commands.
func setParentFlags(cmd *cobra.Command, args []string) (newArgs []string) {
	for _, arg := range args {
		split := strings.Split(arg, "=")
		if len(split) == 2 {
			err := cmd.Parent().PersistentFlags().Set(strings.TrimLeft(split[0], "-"), split[1])
			if err == nil {
				continue
			}
		}
		newArgs = append(newArgs, arg)
	}
	return newArgs
}
