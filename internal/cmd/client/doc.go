// Package client implements the CLI commands that talk to the admin HTTP
// API: guard operations, status, snapshots, and journal reads.
package client
