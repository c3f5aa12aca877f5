// Package main hosts the flightstrip CLI entrypoint and command graph.
//
// The Cobra-based command tree loads photo centre points for a survey block,
// infers which filename subparts identify the flight strip, and manages the
// naming cache that remembers accepted schemes between runs. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: inference, caching, and geometry live in the
// internal packages and are only surfaced here.
package main
