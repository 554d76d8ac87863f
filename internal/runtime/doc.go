// Package runtime assembles a single-node Drosera instance: one Pebble
// store shared by the guard, the journal, and the operator, plus the
// stateless decision engine built from the resolved configuration.
package runtime
