// Package guard implements the withdrawal guard: an authorization-gated
// actuator holding custody of pool share tokens. The trigger identity (the
// automated operator) may invoke only the protected emergency withdrawal;
// everything else is owner-only. A paused guard refuses withdrawals but
// never administration.
//
// All effects of one operation commit in a single Pebble batch after every
// external call has succeeded; a failed call leaves no partial state.
package guard
