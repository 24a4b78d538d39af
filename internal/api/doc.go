// Package api defines the wire types of the HTTP interface and the service
// orchestrating a fingerprint submission: validation, candidate retrieval,
// same-device and cross-device matching, and profile persistence.
package api
