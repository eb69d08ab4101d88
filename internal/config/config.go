package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvironmentMode labels the PROD/DEV deployment. Validate accepts only these
// two values and cmd/observer logs it at startup; nothing else reads it.
// Finalize-block counts come from each chain's FinalizeBlockCount and the BTC
// network from each chain's NetworkMode, not from this value.
type EnvironmentMode string

const (
	EnvironmentProd EnvironmentMode = "PROD"
	EnvironmentDev  EnvironmentMode = "DEV"
)

// ChainConfig is the per-chain slice of Config, one entry per configured
// ChainTag (spec §3, §6).
type ChainConfig struct {
	RPCURL             string `envconfig:"RPC_URL"`
	Kind               string `envconfig:"KIND"` // "EVM" or "BTC"
	FinalizeBlockCount uint64 `envconfig:"FINALIZE_BLOCK_COUNT"`
	BatchBlockSize     uint64 `envconfig:"BATCH_BLOCK_SIZE"`

	// VaultAddress is the chain-native encoding of the vault's resting
	// address: an EVM contract address, or the BTC change/rest address
	// change outputs return to (spec §4.7 BTC step 3).
	VaultAddress string `envconfig:"VAULT_ADDRESS"`

	// EVM-only.
	FactoryAddress string `envconfig:"FACTORY_ADDRESS"`
	BytecodeHash   string `envconfig:"BYTECODE_HASH"`
	ChainID        int64  `envconfig:"CHAIN_ID"`
	SenderAddress  string `envconfig:"SENDER_ADDRESS"`
	DKGParty       string `envconfig:"DKG_PARTY"`

	// BTC-only.
	MasterPubKey string `envconfig:"MASTER_PUBKEY"`
	NetworkMode  string `envconfig:"NETWORK_MODE"` // "mainnet" or "testnet"
}

// Config holds all application configuration, loaded from environment
// variables (optionally seeded by a .env file).
type Config struct {
	Environment EnvironmentMode `envconfig:"ZEXBRIDGE_ENVIRONMENT" default:"DEV"`
	LogLevel    string          `envconfig:"ZEXBRIDGE_LOG_LEVEL" default:"info"`
	LogDir      string          `envconfig:"ZEXBRIDGE_LOG_DIR" default:"./logs"`

	MongoURI string `envconfig:"ZEXBRIDGE_MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB  string `envconfig:"ZEXBRIDGE_MONGO_DB" default:"zexbridge"`

	// Chains is populated by Load by scanning ZEXBRIDGE_CHAINS (a
	// comma-separated chain tag list) and then reading each chain's
	// ZEXBRIDGE_CHAIN_<TAG>_* variables individually, since envconfig cannot
	// express a dynamic map of nested structs on its own.
	ChainTags []string `envconfig:"ZEXBRIDGE_CHAINS" required:"true"`
	Chains    map[string]ChainConfig `envconfig:"-"`

	WithdrawerKeyFile string `envconfig:"ZEXBRIDGE_WITHDRAWER_KEY_FILE"`
	ShieldKeyFile     string `envconfig:"ZEXBRIDGE_SHIELD_KEY_FILE"`

	SigningAggregatorURL  string `envconfig:"ZEXBRIDGE_SIGNING_AGGREGATOR_URL"`
	DKGPartyFile          string `envconfig:"ZEXBRIDGE_DKG_PARTY_FILE"`

	ExchangeBaseURL string `envconfig:"ZEXBRIDGE_EXCHANGE_BASE_URL"`
	ExchangeAPIKey  string `envconfig:"ZEXBRIDGE_EXCHANGE_API_KEY"`

	ObserverDelaySeconds  int `envconfig:"ZEXBRIDGE_OBSERVER_DELAY_SECONDS" default:"12"`
	WithdrawPollSeconds   int `envconfig:"ZEXBRIDGE_WITHDRAW_POLL_SECONDS" default:"10"`

	BTCDefaultFeeRate int64 `envconfig:"ZEXBRIDGE_BTC_FEE_RATE" default:"10"`
}

// Load reads configuration from a .env file (if present) then from the
// environment. Real environment variables always win over .env values.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	chains, err := loadChainConfigs(cfg.ChainTags)
	if err != nil {
		return nil, err
	}
	cfg.Chains = chains

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadChainConfigs processes one ChainConfig per tag from
// ZEXBRIDGE_CHAIN_<TAG>_* environment variables.
func loadChainConfigs(tags []string) (map[string]ChainConfig, error) {
	out := make(map[string]ChainConfig, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.ToUpper(tag))
		if tag == "" {
			continue
		}
		var cc ChainConfig
		prefix := "ZEXBRIDGE_CHAIN_" + tag
		if err := envconfig.Process(prefix, &cc); err != nil {
			return nil, fmt.Errorf("processing chain config %s: %w", tag, err)
		}
		out[tag] = cc
	}
	return out, nil
}

// Validate checks configuration for internal consistency, failing fast at
// boot rather than surfacing a misconfiguration deep in a running loop
// (spec.md §9 supplemented "config validation" feature).
func (c *Config) Validate() error {
	if c.Environment != EnvironmentProd && c.Environment != EnvironmentDev {
		return fmt.Errorf("%w: environment must be PROD or DEV, got %q", ErrInvalidConfig, c.Environment)
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("%w: no chains configured", ErrInvalidConfig)
	}
	for tag, cc := range c.Chains {
		if cc.RPCURL == "" {
			return fmt.Errorf("%w: chain %s missing RPC_URL", ErrInvalidConfig, tag)
		}
		switch cc.Kind {
		case "EVM":
			if cc.FactoryAddress == "" || cc.BytecodeHash == "" {
				return fmt.Errorf("%w: EVM chain %s missing factory address or bytecode hash", ErrInvalidConfig, tag)
			}
			if cc.VaultAddress == "" {
				return fmt.Errorf("%w: EVM chain %s missing vault address", ErrInvalidConfig, tag)
			}
			if cc.ChainID == 0 {
				return fmt.Errorf("%w: EVM chain %s missing chain id", ErrInvalidConfig, tag)
			}
			if cc.SenderAddress == "" {
				return fmt.Errorf("%w: EVM chain %s missing sender address", ErrInvalidConfig, tag)
			}
			if cc.DKGParty == "" {
				return fmt.Errorf("%w: EVM chain %s missing DKG party name", ErrInvalidConfig, tag)
			}
		case "BTC":
			if cc.MasterPubKey == "" {
				return fmt.Errorf("%w: BTC chain %s missing master pubkey", ErrInvalidConfig, tag)
			}
			if cc.NetworkMode != "mainnet" && cc.NetworkMode != "testnet" {
				return fmt.Errorf("%w: BTC chain %s network_mode must be mainnet or testnet, got %q", ErrInvalidConfig, tag, cc.NetworkMode)
			}
			if cc.VaultAddress == "" {
				return fmt.Errorf("%w: BTC chain %s missing vault address", ErrInvalidConfig, tag)
			}
		default:
			return fmt.Errorf("%w: chain %s has unknown kind %q", ErrInvalidConfig, tag, cc.Kind)
		}
	}
	if c.WithdrawerKeyFile == "" {
		return fmt.Errorf("%w: withdrawer key file not set", ErrKeyFileNotSet)
	}
	if c.ShieldKeyFile == "" {
		return fmt.Errorf("%w: shield key file not set", ErrKeyFileNotSet)
	}
	return nil
}
