// Package trap implements the decision engine: the collector folds a window
// of pool events into a Snapshot, and the responder compares consecutive
// snapshots to decide whether an emergency exit should be requested.
//
// Both halves are stateless and side-effect free; the operator runtime owns
// windowing, history retention, and delivery of the resulting action to the
// guard.
package trap
