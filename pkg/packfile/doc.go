// Package packfile validates uploaded package archives.
//
// A package archive is a ZIP container carrying a manifest.json descriptor
// at its root. Validation is structural only: the container must open, the
// descriptor must exist, and it must parse as JSON. What the descriptor
// says is the promotion engine's problem, not this package's.
package packfile
