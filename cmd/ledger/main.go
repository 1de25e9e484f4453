package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/flexa/capacity-smart-contracts/cmd/ledger/cmd"
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.PersistentFlags().StringVar(&utils.LedgerHome, "home-dir", "", "base dir (default is $HOME/.ledger)")
	rootCmd.PersistentFlags().StringVar(&utils.LedgerConfig, "config", "", "path to config (default is $(home-dir)/config/config.toml)")

	rootCmd.AddCommand(
		cmd.RunNode,
		cmd.InitCommand,
		cmd.ExportCommand,
		cmd.KeysCommand,
		cmd.SignCommand,
		cmd.ManagerCommand,
		cmd.ManagerConsole,
		cmd.ShowNodeId,
		cmd.Version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
