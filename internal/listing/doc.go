// Package listing joins on-chain market items with their off-chain metadata.
//
// Aggregate fans out one goroutine per item (tokenURI lookup, then metadata
// fetch) and joins them before returning. Output order is input order; there
// is no deduplication and no caching between calls.
package listing
