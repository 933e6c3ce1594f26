package metadata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnsupportedURI is returned for token URIs we cannot fetch.
	ErrUnsupportedURI = errors.New("unsupported token uri")

	// ErrMalformedMetadata is returned when the body is not a JSON object.
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrDocumentTooLarge is returned when a response body exceeds the size cap.
	ErrDocumentTooLarge = errors.New("metadata document too large")
)

// FetchError represents a non-2xx response from a metadata host.
type FetchError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("metadata fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsRetryable returns true if the error should trigger a retry.
func (e *FetchError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Fetch resolves uri and decodes the metadata document behind it.
// On-chain data: URIs are decoded in place without a request.
func (c *Client) Fetch(ctx context.Context, uri string) (*Document, error) {
	if strings.HasPrefix(strings.TrimSpace(uri), "data:") {
		body, err := decodeDataURI(uri)
		if err != nil {
			return nil, err
		}
		return decodeDocument("data uri", body)
	}

	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}

	body, err := c.doWithRetry(ctx, target)
	if err != nil {
		return nil, err
	}

	return decodeDocument(target, body)
}

func decodeDocument(target string, body []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s: body is not a json object", ErrMalformedMetadata, target)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMetadata, target, err)
	}

	return &doc, nil
}

// decodeDataURI returns the payload of data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(uri), "data:")
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data uri without payload", ErrUnsupportedURI)
	}

	params := strings.Split(meta, ";")
	switch mediaType := strings.ToLower(params[0]); mediaType {
	case "", "application/json", "text/plain":
	default:
		return nil, fmt.Errorf("%w: data uri media type %q", ErrUnsupportedURI, mediaType)
	}

	if strings.EqualFold(params[len(params)-1], "base64") {
		body, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			body, err = base64.RawStdEncoding.DecodeString(data)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: data uri: %v", ErrMalformedMetadata, err)
		}
		return body, nil
	}

	body, err := url.PathUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("%w: data uri: %v", ErrMalformedMetadata, err)
	}
	return []byte(body), nil
}

// resolve maps a token URI onto an HTTP URL.
func (c *Client) resolve(uri string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsupportedURI, uri, err)
	}

	switch u.Scheme {
	case "http", "https":
		return u.String(), nil
	case "ipfs":
		// ipfs://<cid>/<path> and the legacy ipfs://ipfs/<cid>/<path>
		p := strings.TrimPrefix(u.Host+u.Path, "ipfs/")
		if p == "" {
			return "", fmt.Errorf("%w: %q: empty ipfs path", ErrUnsupportedURI, uri)
		}
		return c.ipfsGateway + "/ipfs/" + p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
	}
}

// doRequest performs a single GET.
func (c *Client) doRequest(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxDocumentSize {
		return nil, fmt.Errorf("%w: %s: over %d bytes", ErrDocumentTooLarge, target, c.maxDocumentSize)
	}

	if resp.StatusCode >= 400 {
		return nil, &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a GET with exponential backoff retry. Transport errors
// are retried as well as retryable statuses.
func (c *Client) doWithRetry(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)+1))
			c.logger.Debug("retrying metadata fetch",
				"attempt", attempt,
				"backoff", jitter,
				"url", target,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, target)
		if err == nil {
			return body, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && !fetchErr.IsRetryable() {
			return nil, err
		}
		if errors.Is(err, ErrDocumentTooLarge) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
