// Package githubcli coordinates GitHub operations through the gh CLI,
// covering the pull-request lifecycle the update workflow needs: discovering
// an open pull request for the bot branch, creating one, and refreshing an
// existing one.
package githubcli
