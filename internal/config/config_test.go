package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testMarket = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testNFT    = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

func TestLoad(t *testing.T) {
	yaml := `
chain:
  rpc_url: https://polygon-rpc.example
  chain_id: 137
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
wallet:
  address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
aggregator:
  concurrency: 4
  on_item_failure: abort
server:
  allowed_origins:
    - https://illomx.example
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.RPCURL != "https://polygon-rpc.example" {
		t.Errorf("Chain.RPCURL = %q, want %q", cfg.Chain.RPCURL, "https://polygon-rpc.example")
	}
	if cfg.Chain.ChainID != 137 {
		t.Errorf("Chain.ChainID = %d, want 137", cfg.Chain.ChainID)
	}
	if cfg.Chain.MarketAddress != testMarket {
		t.Errorf("Chain.MarketAddress = %q, want %q", cfg.Chain.MarketAddress, testMarket)
	}
	if cfg.Aggregator.Concurrency != 4 {
		t.Errorf("Aggregator.Concurrency = %d, want 4", cfg.Aggregator.Concurrency)
	}
	if cfg.Aggregator.OnItemFailure != FailureAbort {
		t.Errorf("Aggregator.OnItemFailure = %q, want %q", cfg.Aggregator.OnItemFailure, FailureAbort)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://illomx.example" {
		t.Errorf("Server.AllowedOrigins = %v, want [https://illomx.example]", cfg.Server.AllowedOrigins)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_WALLET_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")

	yaml := `
chain:
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
wallet:
  private_key: ${TEST_WALLET_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Wallet.PrivateKey != "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80" {
		t.Errorf("Wallet.PrivateKey = %q, want the substituted key", cfg.Wallet.PrivateKey)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ILLOMX_RPC_URL", "http://override:8545")
	t.Setenv("ILLOMX_AGGREGATOR_CONCURRENCY", "8")
	t.Setenv("ILLOMX_WATCH_INTERVAL", "2m")
	t.Setenv("ILLOMX_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	yaml := `
chain:
  rpc_url: http://from-file:8545
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
aggregator:
  concurrency: 2
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chain.RPCURL != "http://override:8545" {
		t.Errorf("Chain.RPCURL = %q, want %q", cfg.Chain.RPCURL, "http://override:8545")
	}
	if cfg.Aggregator.Concurrency != 8 {
		t.Errorf("Aggregator.Concurrency = %d, want 8", cfg.Aggregator.Concurrency)
	}
	if cfg.Watch.Interval != 2*time.Minute {
		t.Errorf("Watch.Interval = %v, want 2m", cfg.Watch.Interval)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("Server.AllowedOrigins = %v, want 2 entries", cfg.Server.AllowedOrigins)
	}
	// Untouched by env.
	if cfg.Chain.MarketAddress != testMarket {
		t.Errorf("Chain.MarketAddress = %q, want %q", cfg.Chain.MarketAddress, testMarket)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("ILLOMX_MARKET_ADDRESS", testMarket)
	t.Setenv("ILLOMX_NFT_ADDRESS", testNFT)

	cfg, err := LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Chain.NFTAddress != testNFT {
		t.Errorf("Chain.NFTAddress = %q, want %q", cfg.Chain.NFTAddress, testNFT)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
chain:
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Chain.RPCURL != DefaultRPCURL {
		t.Errorf("Chain.RPCURL = %q, want default %q", cfg.Chain.RPCURL, DefaultRPCURL)
	}
	if cfg.Metadata.IPFSGateway != DefaultIPFSGateway {
		t.Errorf("Metadata.IPFSGateway = %q, want default %q", cfg.Metadata.IPFSGateway, DefaultIPFSGateway)
	}
	if cfg.Metadata.Retries() != DefaultMaxRetries {
		t.Errorf("Metadata.Retries() = %d, want default %d", cfg.Metadata.Retries(), DefaultMaxRetries)
	}
	if cfg.Aggregator.Concurrency != 0 {
		t.Errorf("Aggregator.Concurrency = %d, want 0 (unbounded)", cfg.Aggregator.Concurrency)
	}
	if cfg.Aggregator.OnItemFailure != FailureDrop {
		t.Errorf("Aggregator.OnItemFailure = %q, want default %q", cfg.Aggregator.OnItemFailure, FailureDrop)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Watch.Interval != DefaultWatchInterval {
		t.Errorf("Watch.Interval = %v, want default %v", cfg.Watch.Interval, DefaultWatchInterval)
	}
}

func TestLoadWithDefaults_ZeroRetriesKept(t *testing.T) {
	yaml := `
chain:
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
metadata:
  max_retries: 0
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Metadata.MaxRetries == nil {
		t.Fatal("Metadata.MaxRetries = nil, want explicit 0")
	}
	if got := cfg.Metadata.Retries(); got != 0 {
		t.Errorf("Metadata.Retries() = %d, want 0", got)
	}
}

func TestLoadEnvOverride_ZeroRetries(t *testing.T) {
	t.Setenv("ILLOMX_METADATA_MAX_RETRIES", "0")

	yaml := `
chain:
  market_address: "` + testMarket + `"
  nft_address: "` + testNFT + `"
metadata:
  max_retries: 5
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if got := cfg.Metadata.Retries(); got != 0 {
		t.Errorf("Metadata.Retries() = %d, want 0 from env", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Chain:      ChainConfig{RPCURL: "http://localhost:8545", MarketAddress: testMarket, NFTAddress: testNFT},
			Aggregator: AggregatorConfig{OnItemFailure: FailureDrop},
			Server:     ServerConfig{Port: 8080},
			Watch:      WatchConfig{Interval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing rpc url",
			mutate:  func(c *Config) { c.Chain.RPCURL = "" },
			wantErr: "chain.rpc_url is required",
		},
		{
			name:    "missing market address",
			mutate:  func(c *Config) { c.Chain.MarketAddress = "" },
			wantErr: "chain.market_address is required",
		},
		{
			name:    "bad nft address",
			mutate:  func(c *Config) { c.Chain.NFTAddress = "0x1234" },
			wantErr: `chain.nft_address is not a hex address: "0x1234"`,
		},
		{
			name:    "market address without prefix",
			mutate:  func(c *Config) { c.Chain.MarketAddress = testMarket[2:] },
			wantErr: `chain.market_address is not a hex address: "` + testMarket[2:] + `"`,
		},
		{
			name:    "bad wallet address",
			mutate:  func(c *Config) { c.Wallet.Address = "alice" },
			wantErr: `wallet.address is not a hex address: "alice"`,
		},
		{
			name: "negative retries",
			mutate: func(c *Config) {
				retries := -1
				c.Metadata.MaxRetries = &retries
			},
			wantErr: "metadata.max_retries must be >= 0",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.Aggregator.Concurrency = -1 },
			wantErr: "aggregator.concurrency must be >= 0",
		},
		{
			name:    "unknown failure policy",
			mutate:  func(c *Config) { c.Aggregator.OnItemFailure = "retry" },
			wantErr: `aggregator.on_item_failure must be "drop" or "abort", got "retry"`,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
