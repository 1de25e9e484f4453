package cmd

import (
	"fmt"

	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/spf13/cobra"
)

var Version = &cobra.Command{
	Use:   "version",
	Short: "Show this node's version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s (app %d)\n", version.Version, version.AppVer)
		return nil
	},
}
