package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestConfigFileRoundTrip(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg := GetConfig(home)
	require.Equal(t, filepath.Join(home, "config", "genesis.json"), cfg.GenesisFile())

	v := viper.New()
	v.SetConfigFile(filepath.Join(home, defaultConfigFilePath))
	require.NoError(t, v.ReadInConfig())

	loaded := DefaultConfig()
	require.NoError(t, v.Unmarshal(loaded))
	require.NoError(t, loaded.ValidateBasic())

	require.Equal(t, cfg.APIListenAddress, loaded.APIListenAddress)
	require.Equal(t, cfg.KeepLastStates, loaded.KeepLastStates)
	require.Equal(t, cfg.DBBackend, loaded.DBBackend)
	require.Equal(t, 10*time.Millisecond, loaded.P2P.FlushThrottleTimeout)
	require.False(t, loaded.Consensus.CreateEmptyBlocks)
}

func TestValidateBasic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.KeepLastStates = 0
	require.Error(t, cfg.ValidateBasic())

	cfg = DefaultConfig()
	cfg.LogFormat = "xml"
	require.Error(t, cfg.ValidateBasic())

	cfg = DefaultConfig()
	cfg.StateMemAvailable = 10
	require.Error(t, cfg.ValidateBasic())
}

func TestTmConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().SetRoot("/tmp/ledger")
	tmCfg := GetTmConfig(cfg)
	require.Equal(t, "/tmp/ledger/config/node_key.json", tmCfg.NodeKeyFile())
}
