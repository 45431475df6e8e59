package config

// Package config provides a reusable loader for node configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/n3node/core/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for an n3node full node. It
// mirrors the structure of the YAML files under cmd/n3node/config.
type Config struct {
	Network struct {
		ID          string `mapstructure:"id" json:"id"`
		ChainID     int    `mapstructure:"chain_id" json:"chain_id"`
		GenesisFile string `mapstructure:"genesis_file" json:"genesis_file"`
		RPCEnabled  bool   `mapstructure:"rpc_enabled" json:"rpc_enabled"`
	} `mapstructure:"network" json:"network"`

	VM struct {
		MaxGasPerBlock int64 `mapstructure:"max_gas_per_block" json:"max_gas_per_block"`
		OpcodeDebug    bool  `mapstructure:"opcode_debug" json:"opcode_debug"`
	} `mapstructure:"vm" json:"vm"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
		Prune  bool   `mapstructure:"prune" json:"prune"`
	} `mapstructure:"storage" json:"storage"`

	// Ledger configures the persisted chain and the in-memory mempool that
	// feeds it (§3.4/§4.3.6). There is no Consensus section: the dBFT
	// process that produces blocks is out of scope (spec §1 Non-goals) —
	// this node only validates and persists blocks and transactions that
	// arrive from elsewhere.
	Ledger struct {
		MempoolCapacity int    `mapstructure:"mempool_capacity" json:"mempool_capacity"`
		GenesisTimeMS   uint64 `mapstructure:"genesis_time_ms" json:"genesis_time_ms"`
		NextConsensus   string `mapstructure:"next_consensus" json:"next_consensus"`
	} `mapstructure:"ledger" json:"ledger"`

	P2P struct {
		Magic             uint32   `mapstructure:"magic" json:"magic"`
		ListenAddr        string   `mapstructure:"listen_addr" json:"listen_addr"`
		MaxPeers          int      `mapstructure:"max_peers" json:"max_peers"`
		BootstrapPeers    []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		MaxConcurrentTask int      `mapstructure:"max_concurrent_tasks" json:"max_concurrent_tasks"`
		RetryAttempts     int      `mapstructure:"retry_attempts" json:"retry_attempts"`
		TaskTimeoutMS     int      `mapstructure:"task_timeout_ms" json:"task_timeout_ms"`
	} `mapstructure:"p2p" json:"p2p"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the N3_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("N3_ENV", ""))
}
