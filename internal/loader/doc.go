// Package loader loads on-chain markets concurrently.
//
// Every batch is best effort: a market that fails to load is reported through
// the notification hub and dropped, and never cancels its siblings.
package loader
