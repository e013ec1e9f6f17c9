// Package server exposes the video and audio flows over HTTP for callers
// that are not the CLI, mirroring what reel can do locally.
//
// Every response is JSON except the two streaming endpoints (video content
// and synthesized speech), and every failure uses the same error envelope
// the CLI prints, with the HTTP status derived from the error category.
// Requests carry a generated correlation id that is echoed in the
// X-Request-ID header and attached to the access log line.
package server
