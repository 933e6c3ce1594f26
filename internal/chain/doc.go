// Package chain reads the illoMX market and token contracts over Ethereum JSON-RPC.
//
// Market reads are plain eth_calls whose From is the viewer's account, so the
// contract's msg.sender-scoped views (fetchItemsCreated, fetchMyNFTs) return
// that viewer's items. Nothing here signs or sends transactions.
package chain
