package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stratachain/strata/pkg/config"
	"github.com/stratachain/strata/pkg/core/blockchain"
	"github.com/stratachain/strata/pkg/core/mempool"
	"github.com/stratachain/strata/pkg/core/state"
	"github.com/stratachain/strata/pkg/core/storage"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Version is the CLI's reported version string.
const Version = "0.1.0"

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "path to the node's YAML configuration file",
}

func main() {
	ctl := newApp()

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	ctl := cli.NewApp()
	ctl.Name = "strata"
	ctl.Version = Version
	ctl.Usage = "transaction mempool node for a proof-of-stake chain"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, newNodeCommands()...)
	ctl.Commands = append(ctl.Commands, newMempoolCommands()...)
	return ctl
}

func newNodeCommands() []cli.Command {
	return []cli.Command{{
		Name:   "run",
		Usage:  "run a node",
		Flags:  []cli.Flag{configFlag},
		Action: runNode,
	}}
}

func newMempoolCommands() []cli.Command {
	return []cli.Command{{
		Name:  "mempool",
		Usage: "inspect a node's mempool",
		Subcommands: []cli.Command{{
			Name:   "stats",
			Usage:  "print pooled transaction counts",
			Flags:  []cli.Flag{configFlag},
			Action: mempoolStats,
		}},
	}}
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	path := ctx.String("config")
	if path == "" {
		return cfg, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, cli.NewExitError(fmt.Errorf("can't read config file: %w", err), 1)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, cli.NewExitError(fmt.Errorf("can't parse config file: %w", err), 1)
	}
	return cfg, nil
}

func newLogger(cfg config.ApplicationConfiguration) (*zap.Logger, error) {
	if cfg.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildNode wires a Store, a Trie, a Chain and a Pool together exactly the
// way a running node does: the chain owns the committed trie, the pool
// subscribes to the chain's event stream and reconciles against it for as
// long as the process lives.
func buildNode(cfg config.ApplicationConfiguration, log *zap.Logger) (*blockchain.Chain, *mempool.Pool, error) {
	store, err := storage.NewStore(cfg.Protocol.DBConfiguration)
	if err != nil {
		return nil, nil, fmt.Errorf("can't open store: %w", err)
	}
	trie := state.NewTrie(store)
	bc := blockchain.New(blockchain.Config{
		NetworkID:              cfg.Protocol.NetworkID,
		StakingContractAddress: common.HexToAddress(cfg.Protocol.StakingContractAddress),
	}, trie, log)
	pool := mempool.New(bc, cfg.Mempool, log)
	return bc, pool, nil
}

func runNode(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer log.Sync()

	_, pool, err := buildNode(cfg.ApplicationConfiguration, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	pool.RunSubscriptions()
	defer pool.StopSubscriptions()

	log.Info("node started", zap.Uint64("networkID", cfg.Protocol.NetworkID))
	select {}
}

func mempoolStats(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer log.Sync()

	_, pool, err := buildNode(cfg.ApplicationConfiguration, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "pooled: %d\n", pool.Count())
	fmt.Fprintf(ctx.App.Writer, "lost on rebranch: %d\n", pool.LostOnRebranch())
	return nil
}
