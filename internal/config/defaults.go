package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRPCURL          = "http://127.0.0.1:8545"
	DefaultRPCTimeout      = 15 * time.Second
	DefaultIPFSGateway     = "https://ipfs.io"
	DefaultMetadataTimeout = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultOnItemFailure   = FailureDrop
	DefaultServerPort      = 8080
	DefaultWatchInterval   = 30 * time.Second
	DefaultServiceName     = "illomx-dashboard"
)

// Per-item failure policies for the listing aggregator.
const (
	FailureDrop  = "drop"
	FailureAbort = "abort"
)

func (c *Config) applyDefaults() {
	// Chain defaults
	if c.Chain.RPCURL == "" {
		c.Chain.RPCURL = DefaultRPCURL
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = DefaultRPCTimeout
	}

	// Metadata defaults
	if c.Metadata.IPFSGateway == "" {
		c.Metadata.IPFSGateway = DefaultIPFSGateway
	}
	if c.Metadata.Timeout == 0 {
		c.Metadata.Timeout = DefaultMetadataTimeout
	}
	if c.Metadata.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Metadata.MaxRetries = &retries
	}
	if c.Metadata.RetryBackoff == 0 {
		c.Metadata.RetryBackoff = DefaultRetryBackoff
	}

	if c.Aggregator.OnItemFailure == "" {
		c.Aggregator.OnItemFailure = DefaultOnItemFailure
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Watch.Interval == 0 {
		c.Watch.Interval = DefaultWatchInterval
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
