// Package ui renders human-readable progress lines for external command
// execution. Machine-readable detail belongs in the run report; this package
// only serves the operator-facing stream.
package ui
