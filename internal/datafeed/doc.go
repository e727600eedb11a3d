// Package datafeed talks to the external trade-history and symbol-lookup API.
//
// Endpoints (GET, JSON):
//   - {base}/trades/address/{market}        -> {"success": bool, "data": [...]}
//   - {tv}/getsymbolfrommarketid?marketId=  -> [{"marketName": "..."}]
//
// Resolver wraps symbol lookup for display code: it never returns an error and
// falls back to a caller-supplied symbol.
package datafeed
