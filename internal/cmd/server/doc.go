// Package serverrun boots the full server process: config resolution,
// logging, storage, the operator loop, and the HTTP admin API.
package serverrun
