// Package cli assembles the nupdate command hierarchy: the root command with
// shared configuration and logging flags, and the update command that runs
// dependency-update passes across the repository fleet.
package cli
