package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		Environment: EnvironmentDev,
		ChainTags:   []string{"ETH", "BTC"},
		Chains: map[string]ChainConfig{
			"ETH": {
				RPCURL:         "https://eth.example.com",
				Kind:           "EVM",
				FactoryAddress: "0xAAA0000000000000000000000000000000000A",
				BytecodeHash:   "0xbbb",
				VaultAddress:   "0xCCC0000000000000000000000000000000000C",
				ChainID:        1,
				SenderAddress:  "0xDDD0000000000000000000000000000000000D",
				DKGParty:       "zexbridge-eth",
			},
			"BTC": {
				RPCURL:       "https://esplora.example.com",
				Kind:         "BTC",
				MasterPubKey: "02abcd",
				NetworkMode:  "testnet",
				VaultAddress: "tb1pvaultrestaddressxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
			},
		},
		WithdrawerKeyFile: "/secrets/withdrawer.key",
		ShieldKeyFile:     "/secrets/shield.key",
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "STAGING"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for bad environment, got nil")
	}
}

func TestValidate_NoChains(t *testing.T) {
	cfg := validConfig()
	cfg.Chains = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for empty chain set, got nil")
	}
}

func TestValidate_EVMMissingFactory(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["ETH"]
	cc.FactoryAddress = ""
	cfg.Chains["ETH"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for EVM chain missing factory address")
	}
}

func TestValidate_EVMMissingChainID(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["ETH"]
	cc.ChainID = 0
	cfg.Chains["ETH"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for EVM chain missing chain id")
	}
}

func TestValidate_EVMMissingSenderAddress(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["ETH"]
	cc.SenderAddress = ""
	cfg.Chains["ETH"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for EVM chain missing sender address")
	}
}

func TestValidate_EVMMissingDKGParty(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["ETH"]
	cc.DKGParty = ""
	cfg.Chains["ETH"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for EVM chain missing DKG party name")
	}
}

func TestValidate_BTCBadNetworkMode(t *testing.T) {
	tests := []string{"", "mainet", "Testnet", "regtest"}
	for _, mode := range tests {
		t.Run(mode, func(t *testing.T) {
			cfg := validConfig()
			cc := cfg.Chains["BTC"]
			cc.NetworkMode = mode
			cfg.Chains["BTC"] = cc
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error for network_mode=%q", mode)
			}
		})
	}
}

func TestValidate_BTCMissingVaultAddress(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["BTC"]
	cc.VaultAddress = ""
	cfg.Chains["BTC"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for BTC chain missing vault address")
	}
}

func TestValidate_UnknownChainKind(t *testing.T) {
	cfg := validConfig()
	cc := cfg.Chains["ETH"]
	cc.Kind = "SOL"
	cfg.Chains["ETH"] = cc
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for unknown chain kind")
	}
}

func TestValidate_MissingKeyFiles(t *testing.T) {
	cfg := validConfig()
	cfg.WithdrawerKeyFile = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing withdrawer key file")
	}

	cfg = validConfig()
	cfg.ShieldKeyFile = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for missing shield key file")
	}
}

func TestLoadChainConfigs_NormalizesTagCase(t *testing.T) {
	t.Setenv("ZEXBRIDGE_CHAIN_ETH_RPC_URL", "https://eth.example.com")
	t.Setenv("ZEXBRIDGE_CHAIN_ETH_KIND", "EVM")

	chains, err := loadChainConfigs([]string{" eth "})
	if err != nil {
		t.Fatalf("loadChainConfigs() error = %v", err)
	}
	cc, ok := chains["ETH"]
	if !ok {
		t.Fatal("expected chain tag to be normalized to ETH")
	}
	if cc.RPCURL != "https://eth.example.com" {
		t.Fatalf("RPCURL = %q, want env value", cc.RPCURL)
	}
}
