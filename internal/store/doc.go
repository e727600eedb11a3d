// Package store persists the dashboard's local state: custom markets,
// selected token accounts and the fee discount key.
//
// Each value is read and written whole as JSON under a fixed key. Reading a
// key that was never written returns the empty default, not an error.
package store
