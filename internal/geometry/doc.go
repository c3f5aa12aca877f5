// Package geometry decides whether groups of photo centres lie on a line.
//
// An Engine supplies three primitives (convex hull, buffer, non-empty count).
// Planar implements them in pure Go and is always available; RasterEngine
// implements them with OpenCV morphology when the binary is built with the
// gocv tag. Verifier combines the primitives into the collinearity test used
// by naming inference: every group's hull is shrunk by a margin and the test
// passes only when nothing survives.
package geometry
