// Package evm holds the passive ledger data model shared by the trap and
// the guard: fixed-width identities and words, raw event records, and
// subscription declarations for the external log feed.
package evm
