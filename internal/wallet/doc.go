// Package wallet implements the guard's Wallet interface: an HTTP client
// for an external signer daemon, and a dry-run wallet for drills.
package wallet
