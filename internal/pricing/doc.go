// Package pricing derives order prices from an L2 order book.
//
// Both functions walk levels best to worst, accumulating notional cost until
// the requested cost is reached.
package pricing
