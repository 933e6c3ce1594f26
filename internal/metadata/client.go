package metadata

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/illomx/market-dashboard/internal/version"
)

// Document is the subset of an ERC-721 metadata document we display.
type Document struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Client fetches metadata documents over HTTP.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	ipfsGateway string
	userAgent   string

	maxRetries   int
	retryBackoff time.Duration

	maxDocumentSize int64
}

// DefaultMaxDocumentSize caps a metadata response body.
const DefaultMaxDocumentSize = 8 << 20

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new metadata client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		ipfsGateway:  "https://ipfs.io",
		userAgent:    version.UserAgent(),
		maxRetries:   3,
		retryBackoff: 500 * time.Millisecond,

		maxDocumentSize: DefaultMaxDocumentSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxDocumentSize sets the response body cap in bytes.
func WithMaxDocumentSize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxDocumentSize = n
		}
	}
}

// WithIPFSGateway sets the gateway ipfs:// URIs are resolved against.
func WithIPFSGateway(gateway string) ClientOption {
	return func(c *Client) {
		c.ipfsGateway = strings.TrimRight(gateway, "/")
	}
}
