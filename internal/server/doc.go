// Package server exposes dashboards over HTTP.
//
// Routes:
//   - GET /health
//   - GET /api/market
//   - GET /api/dashboard/{address}
//   - GET /api/dashboard/{address}/stream (WebSocket, one message per refresh)
package server
