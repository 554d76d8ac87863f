// Package httpserver exposes the JSON admin API: guard operations, runtime
// status, snapshot history, and journal reads. Mutating endpoints carry the
// caller identity in the request body; the guard enforces authorization.
package httpserver
