// Package operator runs the monitoring loop that feeds the decision engine
// and carries its triggers to the guard. Each round fetches one window of
// pool events, folds it into a snapshot, rotates a persisted two-deep
// history, and delivers any triggered response through a durable outbox
// with at-least-once semantics.
package operator
