// Package pebblestore wraps Pebble with the durability policy used by the
// guard and operator: every mutating operation commits through a batch so
// multi-key updates (custody debit + journal append) land atomically.
package pebblestore
