// Package main hosts the reel CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into video and
// audio API flows, job registry maintenance, configuration scaffolding, and
// the embedded REST server. It centralizes configuration resolution,
// credential overrides, and structured logging setup so subcommands can focus
// on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
