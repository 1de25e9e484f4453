package cmd

import (
	"time"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/pkg/errors"
	tmjson "github.com/tendermint/tendermint/libs/json"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	tmTypes "github.com/tendermint/tendermint/types"
)

const (
	blockMaxBytes   int64 = 10000000
	blockMaxGas     int64 = -1
	blockTimeIotaMs int64 = 1000

	evidenceMaxAgeNumBlocks = 1000
	evidenceMaxAgeDuration  = 24 * time.Hour
)

// makeGenesis wraps a verified ledger state into a tendermint genesis document.
func makeGenesis(chainID string, genesisTime time.Time, initialHeight int64, appState types.AppState, validators []tmTypes.GenesisValidator) (*tmTypes.GenesisDoc, error) {
	if err := appState.Verify(); err != nil {
		return nil, errors.Wrap(err, "verify app state")
	}

	appStateJSON, err := tmjson.Marshal(appState)
	if err != nil {
		return nil, errors.Wrap(err, "marshal app state")
	}

	genesis := &tmTypes.GenesisDoc{
		GenesisTime:   genesisTime.UTC(),
		InitialHeight: initialHeight,
		ChainID:       chainID,
		ConsensusParams: &tmproto.ConsensusParams{
			Block: tmproto.BlockParams{
				MaxBytes:   blockMaxBytes,
				MaxGas:     blockMaxGas,
				TimeIotaMs: blockTimeIotaMs,
			},
			Evidence: tmproto.EvidenceParams{
				MaxAgeNumBlocks: evidenceMaxAgeNumBlocks,
				MaxAgeDuration:  evidenceMaxAgeDuration,
				MaxBytes:        1048576,
			},
			Validator: tmproto.ValidatorParams{
				PubKeyTypes: []string{
					tmTypes.ABCIPubKeyTypeEd25519,
				},
			},
			Version: tmproto.VersionParams{
				AppVersion: version.AppVer,
			},
		},
		Validators: validators,
		AppState:   appStateJSON,
	}

	if err := genesis.ValidateAndComplete(); err != nil {
		return nil, errors.Wrap(err, "validate genesis")
	}

	return genesis, nil
}
