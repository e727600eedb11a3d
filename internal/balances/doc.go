// Package balances turns raw open-orders and token account amounts into
// human-scaled balances per mint.
package balances
