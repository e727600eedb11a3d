// Package openorders finds a wallet's open-orders accounts across Serum
// program versions, including balances stranded on deprecated markets.
package openorders
