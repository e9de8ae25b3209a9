package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nupdate/nupdate/internal/execshell"
)

const (
	gitCloneSubcommandConstant        = "clone"
	gitCheckoutSubcommandConstant     = "checkout"
	gitStatusSubcommandConstant       = "status"
	gitAddSubcommandConstant          = "add"
	gitCommitSubcommandConstant       = "commit"
	gitPushSubcommandConstant         = "push"
	gitLSRemoteSubcommandConstant     = "ls-remote"
	gitNewBranchFlagConstant          = "-b"
	gitPorcelainFlagConstant          = "--porcelain"
	gitAllFlagConstant                = "-A"
	gitMessageFlagConstant            = "-m"
	gitSetUpstreamFlagConstant        = "--set-upstream"
	gitHeadsFlagConstant              = "--heads"
	originRemoteNameConstant          = "origin"
	remoteTrackingPrefixTemplate      = "%s/%s"
	executorMissingMessageConstant    = "git executor not configured"
	cloneErrorTemplateConstant        = "unable to clone %s: %w"
	branchErrorTemplateConstant       = "unable to prepare branch %s: %w"
	statusErrorTemplateConstant       = "unable to inspect working tree at %s: %w"
	stageErrorTemplateConstant        = "unable to stage changes at %s: %w"
	commitErrorTemplateConstant       = "unable to commit changes at %s: %w"
	pushErrorTemplateConstant         = "unable to push branch %s: %w"
	remoteLookupErrorTemplateConstant = "unable to query remote branches for %s: %w"
)

// GitExecutor describes the execshell surface RepositoryManager requires.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager performs git working-copy operations for the update workflow.
type RepositoryManager struct {
	gitExecutor GitExecutor
}

var errGitExecutorMissing = errors.New(executorMissingMessageConstant)

// NewRepositoryManager constructs a RepositoryManager backed by the provided executor.
func NewRepositoryManager(gitExecutor GitExecutor) (*RepositoryManager, error) {
	if gitExecutor == nil {
		return nil, errGitExecutorMissing
	}
	return &RepositoryManager{gitExecutor: gitExecutor}, nil
}

// CloneRepository clones the remote repository into the target path.
func (manager *RepositoryManager) CloneRepository(executionContext context.Context, remoteURL string, targetPath string, environment map[string]string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, remoteURL, targetPath},
		EnvironmentVariables: environment,
	}
	if _, cloneError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails); cloneError != nil {
		return fmt.Errorf(cloneErrorTemplateConstant, remoteURL, cloneError)
	}
	return nil
}

// RemoteBranchExists reports whether the named branch exists on origin.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, branchName string) (bool, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, originRemoteNameConstant, branchName},
		WorkingDirectory: repositoryPath,
	}
	executionResult, lookupError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if lookupError != nil {
		return false, fmt.Errorf(remoteLookupErrorTemplateConstant, branchName, lookupError)
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// EnsureBranch checks out the named branch, reusing the remote branch when a
// prior run left it behind and creating a fresh local branch otherwise.
func (manager *RepositoryManager) EnsureBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	remoteExists, lookupError := manager.RemoteBranchExists(executionContext, repositoryPath, branchName)
	if lookupError != nil {
		return lookupError
	}

	checkoutArguments := []string{gitCheckoutSubcommandConstant, gitNewBranchFlagConstant, branchName}
	if remoteExists {
		remoteTrackingReference := fmt.Sprintf(remoteTrackingPrefixTemplate, originRemoteNameConstant, branchName)
		checkoutArguments = append(checkoutArguments, remoteTrackingReference)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        checkoutArguments,
		WorkingDirectory: repositoryPath,
	}
	if _, checkoutError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails); checkoutError != nil {
		return fmt.Errorf(branchErrorTemplateConstant, branchName, checkoutError)
	}
	return nil
}

// HasWorkingTreeChanges reports whether the working tree differs from HEAD.
func (manager *RepositoryManager) HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	}
	executionResult, statusError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if statusError != nil {
		return false, fmt.Errorf(statusErrorTemplateConstant, repositoryPath, statusError)
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// StageAllChanges stages every modification in the working tree.
func (manager *RepositoryManager) StageAllChanges(executionContext context.Context, repositoryPath string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitAddSubcommandConstant, gitAllFlagConstant},
		WorkingDirectory: repositoryPath,
	}
	if _, stageError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails); stageError != nil {
		return fmt.Errorf(stageErrorTemplateConstant, repositoryPath, stageError)
	}
	return nil
}

// CommitChanges records staged changes with the provided message.
func (manager *RepositoryManager) CommitChanges(executionContext context.Context, repositoryPath string, commitMessage string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitCommitSubcommandConstant, gitMessageFlagConstant, commitMessage},
		WorkingDirectory: repositoryPath,
	}
	if _, commitError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails); commitError != nil {
		return fmt.Errorf(commitErrorTemplateConstant, repositoryPath, commitError)
	}
	return nil
}

// PushBranch publishes the branch to origin with upstream tracking.
func (manager *RepositoryManager) PushBranch(executionContext context.Context, repositoryPath string, branchName string, environment map[string]string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, gitSetUpstreamFlagConstant, originRemoteNameConstant, branchName},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: environment,
	}
	if _, pushError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails); pushError != nil {
		return fmt.Errorf(pushErrorTemplateConstant, branchName, pushError)
	}
	return nil
}
