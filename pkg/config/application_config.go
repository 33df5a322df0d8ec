package config

import (
	"github.com/stratachain/strata/pkg/core/mempool"
	"github.com/stratachain/strata/pkg/core/storage"
)

// ProtocolConfiguration is the chain-level configuration: network identity,
// the staking contract's distinguished address, and the accounts trie's
// backing store. The address is kept as its hex form here so the struct
// round-trips through YAML; it's parsed when the chain is built.
type ProtocolConfiguration struct {
	NetworkID              uint64                  `yaml:"NetworkID"`
	StakingContractAddress string                  `yaml:"StakingContractAddress"`
	DBConfiguration        storage.DBConfiguration `yaml:"DBConfiguration"`
}

// ApplicationConfiguration is the node-level configuration: logging, and
// the two sub-configurations a running node actually needs, the protocol's
// chain parameters and the mempool's admission rules.
type ApplicationConfiguration struct {
	LogPath  string                `yaml:"LogPath"`
	LogLevel string                `yaml:"LogLevel"`
	Protocol ProtocolConfiguration `yaml:"Protocol"`
	Mempool  mempool.Config        `yaml:"Mempool"`
}

// Config is the top-level document a YAML config file unmarshals into.
type Config struct {
	ApplicationConfiguration `yaml:",inline"`
}

// DefaultConfig returns a Config with every sub-configuration at its
// package default, suitable as a starting point before a YAML file is
// loaded over it.
func DefaultConfig() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			LogLevel: "info",
			Mempool:  mempool.DefaultConfig(),
		},
	}
}
