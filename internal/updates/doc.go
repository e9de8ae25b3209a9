// Package updates implements the fleet dependency-update workflow: the
// orchestration loop that walks the repository roster, the per-repository
// update client that turns detected updates into branches and pull requests,
// the dotnet-outdated change operation, and the run report the loop
// accumulates. Failures are isolated per organization and per repository; a
// single failing repository never aborts the batch.
package updates
