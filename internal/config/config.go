package config

import "time"

// Config is the root configuration for the dashboard binaries.
type Config struct {
	Chain      ChainConfig      `yaml:"chain"`
	Wallet     WalletConfig     `yaml:"wallet"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Server     ServerConfig     `yaml:"server"`
	Watch      WatchConfig      `yaml:"watch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ChainConfig holds the JSON-RPC endpoint and deployed contract addresses.
type ChainConfig struct {
	RPCURL        string        `yaml:"rpc_url" env:"ILLOMX_RPC_URL"`
	ChainID       int64         `yaml:"chain_id" env:"ILLOMX_CHAIN_ID"` // 0 skips the chain id check
	MarketAddress string        `yaml:"market_address" env:"ILLOMX_MARKET_ADDRESS"`
	NFTAddress    string        `yaml:"nft_address" env:"ILLOMX_NFT_ADDRESS"`
	Timeout       time.Duration `yaml:"timeout" env:"ILLOMX_RPC_TIMEOUT"`
}

// WalletConfig identifies the viewer. Address wins over PrivateKey when both are set.
type WalletConfig struct {
	Address    string `yaml:"address" env:"ILLOMX_WALLET_ADDRESS"`
	PrivateKey string `yaml:"private_key" env:"ILLOMX_WALLET_PRIVATE_KEY"` // hex, used only to derive the address
}

// MetadataConfig holds token metadata fetch settings.
type MetadataConfig struct {
	IPFSGateway  string        `yaml:"ipfs_gateway" env:"ILLOMX_IPFS_GATEWAY"`
	Timeout      time.Duration `yaml:"timeout" env:"ILLOMX_METADATA_TIMEOUT"`
	MaxRetries   *int          `yaml:"max_retries" env:"ILLOMX_METADATA_MAX_RETRIES"` // nil = default, 0 = no retries
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"ILLOMX_METADATA_RETRY_BACKOFF"`
}

// Retries returns the configured retry count, or the default when unset.
func (m MetadataConfig) Retries() int {
	if m.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *m.MaxRetries
}

// AggregatorConfig controls the listing fan-out.
type AggregatorConfig struct {
	Concurrency   int    `yaml:"concurrency" env:"ILLOMX_AGGREGATOR_CONCURRENCY"` // 0 = unbounded
	OnItemFailure string `yaml:"on_item_failure" env:"ILLOMX_AGGREGATOR_ON_ITEM_FAILURE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port" env:"ILLOMX_SERVER_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ILLOMX_SERVER_ALLOWED_ORIGINS" envSeparator:","`
}

// WatchConfig holds the live dashboard refresh settings.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval" env:"ILLOMX_WATCH_INTERVAL"`
}

// TelemetryConfig holds OpenTelemetry export settings. An empty endpoint disables tracing.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"ILLOMX_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"ILLOMX_SERVICE_NAME"`
}
