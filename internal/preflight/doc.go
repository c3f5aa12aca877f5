// Package preflight provides readiness checks for the filesystem paths and
// geometry engine that flightstrip depends on.
//
// The CLI "flightstrip status" command renders RunAll's results, and
// "flightstrip infer" calls it before touching any survey block so a
// read-only processing root fails fast instead of after inference.
package preflight
