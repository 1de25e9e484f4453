package cmd

import (
	"crypto/sha256"
	"io"
	"log"
	"os"
	"time"

	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/core/appdb"
	"github.com/flexa/capacity-smart-contracts/core/minter"
	"github.com/flexa/capacity-smart-contracts/core/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	ExportCommand = &cobra.Command{
		Use:   "export",
		Short: "Export the ledger at a height as a new genesis",
		RunE:  export,
	}
)

func init() {
	ExportCommand.Flags().Uint64("height", 0, "height to export (default is the last committed one)")
	ExportCommand.Flags().String("chain-id", "ledger-local", "chain id of the new network")
	ExportCommand.Flags().Duration("genesis-time", 0, "genesis time as a duration since unix epoch (default is now)")
	ExportCommand.Flags().String("output", "genesis.json", "path of the exported genesis")
}

func export(cmd *cobra.Command, _ []string) error {
	height, err := cmd.Flags().GetUint64("height")
	if err != nil {
		return err
	}
	chainID, err := cmd.Flags().GetString("chain-id")
	if err != nil {
		return err
	}
	genesisTime, err := cmd.Flags().GetDuration("genesis-time")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	log.Println("Start exporting...")

	storages := utils.NewStorage(utils.GetLedgerHome(), utils.GetLedgerConfigPath())
	defer storages.Close()

	if err := storages.InitStateLevelDB("state", minter.GetDbOpts(cfg.StateMemAvailable)); err != nil {
		return err
	}
	if err := storages.InitAppDB(cfg.DBBackend); err != nil {
		return err
	}

	db := appdb.NewAppDB(storages.AppDB())
	if height == 0 {
		height = db.GetLastHeight()
	}

	currentState, err := state.NewCheckStateAtHeight(height, storages.StateDB())
	if err != nil {
		return errors.Wrapf(err, "cannot load state at height %d, last available height %d", height, db.GetLastHeight())
	}

	exportTimeStart := time.Now()
	appState := currentState.Export()
	log.Printf("State has been exported. Took %s\n", time.Since(exportTimeStart))

	start := time.Now()
	if genesisTime != 0 {
		start = time.Unix(0, 0).Add(genesisTime)
	}

	genesis, err := makeGenesis(chainID, start, int64(height)+1, appState, nil)
	if err != nil {
		return err
	}
	log.Printf("Validate genesis OK\n")

	if err := genesis.SaveAs(output); err != nil {
		return errors.Wrap(err, "save genesis")
	}

	hash, err := getFileSha256Hash(output)
	if err != nil {
		return err
	}
	log.Printf("Finish with sha256 hash: \n%x\n", hash)

	return nil
}

func getFileSha256Hash(file string) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
