// Package watch implements the live dashboard refresher.
//
// The Refresher:
//   - Loads a viewer's dashboard immediately, then on every interval tick
//   - Hands every result, failed loads included, to a Handler
//   - Stops when its context ends or the Handler returns an error
package watch
