// Package model defines shared data types used across the Serum market dashboard.
//
// Conventions:
//   - Addresses: solana.PublicKey (base58 on the wire)
//   - Raw token amounts: uint64 in the mint's smallest unit
//   - Human-scaled amounts: decimal.Decimal (raw / 10^decimals)
//   - Order book prices and sizes: float64, as produced by the on-chain decoder
package model
