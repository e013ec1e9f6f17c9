// Package services defines shared utilities consumed by the API clients and
// the workflow layer.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with a
//     category (auth, invalid argument, remote, timeout, io) so the boundary
//     can render them uniformly.
//   - The RemoteError type carrying the upstream HTTP status and body for
//     non-success API responses.
//   - Context helpers that stamp operation names and correlation identifiers
//     for logging.
//
// Use these helpers when wiring new operations so error handling and
// observability stay uniform across the CLI and the HTTP surface.
package services
