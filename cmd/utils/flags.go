package utils

import (
	"os"
	"path/filepath"
)

var (
	LedgerHome   string
	LedgerConfig string
)

func GetLedgerHome() string {
	if LedgerHome != "" {
		return LedgerHome
	}

	home := os.Getenv("LEDGERHOME")

	if home != "" {
		return home
	}

	return os.ExpandEnv(filepath.Join("$HOME", ".ledger"))
}

func GetLedgerConfigPath() string {
	if LedgerConfig != "" {
		return LedgerConfig
	}

	return GetLedgerHome() + "/config/config.toml"
}
