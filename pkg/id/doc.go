// Package id generates 128-bit, time-ordered identifiers used to stamp
// journal records. IDs sort lexicographically by creation time, which keeps
// Pebble range scans in chronological order.
package id
