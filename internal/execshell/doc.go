// Package execshell provides typed wrappers for invoking the external tools
// nupdate depends on: git, the GitHub CLI, dotnet-outdated, and curl. It wraps
// os/exec behind ShellExecutor, logs command lifecycles through zap, notifies
// optional observers, and converts non-zero exits into typed errors.
package execshell
