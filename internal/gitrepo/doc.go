// Package gitrepo wraps git working-copy operations behind RepositoryManager,
// covering the clone, branch, stage, commit, and push steps of the update
// workflow. All git invocations flow through execshell.
package gitrepo
