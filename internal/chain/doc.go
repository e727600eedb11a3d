// Package chain reads Serum market state from a Solana RPC node.
//
// Client is the narrow surface the rest of the dashboard depends on. RPC
// implements it with solana-go and decodes the raw account layouts itself;
// tests substitute an in-memory fake.
package chain
