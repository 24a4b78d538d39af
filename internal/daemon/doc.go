// Package daemon runs the long-lived beacon process: the HTTP API server,
// the background maintenance loop, and the single-instance lock around both.
package daemon
