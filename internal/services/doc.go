// Package services defines shared utilities consumed by the inference pipeline,
// the naming cache, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp survey block keys, pipeline stage names, and
//     run identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes (fault vs transient).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the tool.
package services
