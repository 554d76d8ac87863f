// Package journal provides the append-only action log shared by the guard
// and the operator: withdrawal records, administrative state changes, and
// trigger decisions. Records are CRC-framed and keyed by a contiguous
// big-endian sequence so Pebble range scans replay them in order.
//
// StageAppend lets callers fold a journal write into their own batch; the
// guard uses this so a withdrawal record becomes durable in the same commit
// as the custody debit it describes.
package journal
