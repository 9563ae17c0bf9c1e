// Package client contains the client-side API contract for picsync.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) to talk to
//     the picsync backend: Register/Login, Ping, checksum existence lookups
//     and multipart asset uploads.
//  2. A concrete HTTP implementation (see HTTPClient) that injects the
//     access token via a wrapping RoundTripper and maps HTTP status codes
//     to sentinel errors.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrBadRequest.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use; the reconciliation pool issues
// many CheckExists calls against one instance. All operations accept
// context.Context and honor cancellation/timeouts.
package client
