// Package market implements the Market Registry component.
//
// The Market Registry:
//   - Holds the static list of known Serum markets (embedded markets.yaml)
//   - Merges user-added custom markets ahead of the static list
//   - Deduplicates by address: static entries win, then the first custom entry
//   - Answers deprecation and program-ID queries for the open-orders scans
package market
