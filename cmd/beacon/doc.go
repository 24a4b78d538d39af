// Command beacon is the CLI for inspecting and maintaining a running beacon
// daemon and its profile store.
package main
