package cmd

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // nolint: gosec // securely exposed on separate, optional port
	"syscall"
	"time"

	apiV2 "github.com/flexa/capacity-smart-contracts/api/v2"
	serviceApi "github.com/flexa/capacity-smart-contracts/api/v2/service"
	"github.com/flexa/capacity-smart-contracts/cli/service"
	"github.com/flexa/capacity-smart-contracts/cmd/utils"
	"github.com/flexa/capacity-smart-contracts/config"
	"github.com/flexa/capacity-smart-contracts/core/minter"
	"github.com/flexa/capacity-smart-contracts/core/statistics"
	"github.com/flexa/capacity-smart-contracts/log"
	"github.com/flexa/capacity-smart-contracts/version"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/abci/types"
	tmCfg "github.com/tendermint/tendermint/config"
	tmLog "github.com/tendermint/tendermint/libs/log"
	tmNet "github.com/tendermint/tendermint/libs/net"
	tmOS "github.com/tendermint/tendermint/libs/os"
	tmNode "github.com/tendermint/tendermint/node"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/privval"
	"github.com/tendermint/tendermint/proxy"
	tmTypes "github.com/tendermint/tendermint/types"
	"golang.org/x/sync/errgroup"
)

// RunNode is the command that allows the CLI to start a node.
var RunNode = &cobra.Command{
	Use:   "node",
	Short: "Run the ledger node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runNode(cmd)
	},
}

func init() {
	RunNode.Flags().Bool("pprof", false, "enable pprof")
	RunNode.Flags().String("pprof-addr", "0.0.0.0:6060", "pprof listen addr")
}

func runNode(cmd *cobra.Command) error {
	logger := log.NewLogger(cfg)

	// check open files limits
	if err := checkRlimits(); err != nil {
		return err
	}

	// ensure /config and /tmdata dirs
	if err := ensureDirs(); err != nil {
		return err
	}

	pprofOn, err := cmd.Flags().GetBool("pprof")
	if err != nil {
		return err
	}

	if pprofOn || cfg.ProfListenAddress != "" {
		if err := enablePprof(cmd, logger); err != nil {
			return err
		}
	}

	storages := utils.NewStorage(utils.GetLedgerHome(), utils.GetLedgerConfigPath())
	if err := storages.InitStateLevelDB("state", minter.GetDbOpts(cfg.StateMemAvailable)); err != nil {
		return err
	}
	if err := storages.InitEventLevelDB("events", minter.GetDbOpts(1024)); err != nil {
		return err
	}
	if err := storages.InitAppDB(cfg.DBBackend); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app := minter.NewLedgerBlockchain(storages, cfg, ctx, logger.With("module", "ledger"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	app.SetStatisticData(statistics.New(registry))

	tmConfig := config.GetTmConfig(cfg)

	// start TM node
	node, err := startTendermintNode(app, tmConfig, logger)
	if err != nil {
		_ = app.Close()
		return err
	}
	app.SetTmNode(node)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv := serviceApi.NewService(app, app.RpcClient(), cfg, version.Version, logger.With("module", "api"))
		return apiV2.Run(gctx, srv, cfg.APIListenAddress, registry, logger.With("module", "api"))
	})
	g.Go(func() error {
		manager := service.NewManager(app, app.RpcClient(), node, cfg)
		return service.StartCLIServer(utils.GetLedgerHome()+"/manager.sock", manager, registry, gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		app.Stop()
		return nil
	})

	err = g.Wait()
	if waitErr := app.WaitStop(); waitErr != nil && err == nil {
		err = waitErr
	}
	return err
}

func enablePprof(cmd *cobra.Command, logger tmLog.Logger) error {
	pprofAddr, err := cmd.Flags().GetString("pprof-addr")
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("pprof-addr") && cfg.ProfListenAddress != "" {
		_, pprofAddr = tmNet.ProtocolAndAddress(cfg.ProfListenAddress)
	}

	pprofMux := http.DefaultServeMux
	http.DefaultServeMux = http.NewServeMux()
	go func() {
		logger.Error((&http.Server{
			Addr:              pprofAddr,
			Handler:           pprofMux,
			ReadHeaderTimeout: 10 * time.Second,
		}).ListenAndServe().Error())
	}()
	return nil
}

func ensureDirs() error {
	if err := tmOS.EnsureDir(utils.GetLedgerHome()+"/config", 0777); err != nil {
		return err
	}

	if err := tmOS.EnsureDir(cfg.DBDir(), 0777); err != nil {
		return err
	}

	return nil
}

func checkRlimits() error {
	const RequiredOpenFilesLimit = 10000

	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return err
	}

	required := RequiredOpenFilesLimit + uint64(cfg.StateMemAvailable)
	if rLimit.Cur < required {
		rLimit.Cur = required
		err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
		if err != nil {
			return fmt.Errorf("cannot set RLIMIT_NOFILE to %d", rLimit.Cur)
		}
	}

	return nil
}

func startTendermintNode(app types.Application, cfg *tmCfg.Config, logger tmLog.Logger) (*tmNode.Node, error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return nil, errors.Wrap(err, "load node key")
	}

	node, err := tmNode.NewNode(
		cfg,
		privval.LoadOrGenFilePV(cfg.PrivValidatorKeyFile(), cfg.PrivValidatorStateFile()),
		nodeKey,
		proxy.NewLocalClientCreator(app),
		getGenesis(cfg),
		tmNode.DefaultDBProvider,
		tmNode.DefaultMetricsProvider(cfg.Instrumentation),
		logger.With("module", "tendermint"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a node")
	}

	if err = node.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start node")
	}

	logger.Info("Started node", "nodeInfo", node.Switch().NodeInfo())

	return node, nil
}

func getGenesis(cfg *tmCfg.Config) tmNode.GenesisDocProvider {
	return func() (*tmTypes.GenesisDoc, error) {
		genDocFile := cfg.GenesisFile()
		if !tmOS.FileExists(genDocFile) {
			return nil, fmt.Errorf("genesis file %s does not exist, run init first", genDocFile)
		}
		return tmTypes.GenesisDocFromFile(genDocFile)
	}
}
