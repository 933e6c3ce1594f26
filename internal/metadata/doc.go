// Package metadata fetches off-chain token metadata documents.
//
// A token's tokenURI points at a JSON document carrying at least image, name
// and description. http(s) URIs are fetched as-is; ipfs:// URIs are rewritten
// onto the configured gateway.
package metadata
