package updates

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/githubcli"
)

const (
	repositoryRemoteURLTemplateConstant      = "https://github.com/%s/%s.git"
	checkoutDirectoryPatternConstant         = "nupdate-checkout-*"
	dryRunReferenceTemplateConstant          = "dry-run:%s/%s@%s"
	checkoutCreationErrorTemplateConstant    = "unable to create checkout directory: %w"
	changeOperationErrorTemplateConstant     = "change operation failed for %s/%s: %w"
	pullRequestLookupErrorTemplateConstant   = "unable to query pull requests for %s: %w"
	loggerMissingMessageConstant             = "update client logger not configured"
	gitWorkspaceMissingMessageConstant       = "update client git workspace not configured"
	pullRequestServiceMissingMessageConstant = "update client pull request service not configured"
	clonedRepositoryLogMessageConstant       = "cloned repository"
	branchPreparedLogMessageConstant         = "prepared update branch"
	workingTreeCleanLogMessageConstant       = "working tree unchanged after operation"
	dryRunSkipLogMessageConstant             = "dry run: skipping commit, push, and pull request"
	pullRequestReusedLogMessageConstant      = "refreshed existing pull request"
	pullRequestOpenedLogMessageConstant      = "opened pull request"
	repositoryLogFieldNameConstant           = "repository"
	branchLogFieldNameConstant               = "branch"
	pullRequestLogFieldNameConstant          = "pull_request"
)

// Construction errors for RepositoryUpdateClient.
var (
	ErrUpdateClientLoggerMissing             = errors.New(loggerMissingMessageConstant)
	ErrUpdateClientGitWorkspaceMissing       = errors.New(gitWorkspaceMissingMessageConstant)
	ErrUpdateClientPullRequestServiceMissing = errors.New(pullRequestServiceMissingMessageConstant)
)

// GitWorkspace describes the gitrepo surface the update client requires.
type GitWorkspace interface {
	CloneRepository(executionContext context.Context, remoteURL string, targetPath string, environment map[string]string) error
	EnsureBranch(executionContext context.Context, repositoryPath string, branchName string) error
	HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error)
	StageAllChanges(executionContext context.Context, repositoryPath string) error
	CommitChanges(executionContext context.Context, repositoryPath string, commitMessage string) error
	PushBranch(executionContext context.Context, repositoryPath string, branchName string, environment map[string]string) error
}

// PullRequestService describes the githubcli surface the update client requires.
type PullRequestService interface {
	ListPullRequests(executionContext context.Context, repository string, options githubcli.PullRequestListOptions, environment map[string]string) ([]githubcli.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repository string, options githubcli.PullRequestCreateOptions, environment map[string]string) (string, error)
	UpdatePullRequest(executionContext context.Context, repository string, pullRequestNumber int, options githubcli.PullRequestUpdateOptions, environment map[string]string) error
}

// UpdateOptions parameterizes one repository update attempt.
type UpdateOptions struct {
	Organization     string
	RepositoryName   string
	BranchName       string
	CommitMessage    string
	PullRequestTitle string
	PullRequestBody  string
	Labels           []string
	DryRun           bool
	Environment      map[string]string
}

// RepositoryUpdateClient clones one repository, runs a change operation on the
// working copy, and publishes the result as a pull request when the tree
// changed. The returned reference is empty for no-op runs.
type RepositoryUpdateClient struct {
	logger             *zap.Logger
	gitWorkspace       GitWorkspace
	pullRequestService PullRequestService
}

// NewRepositoryUpdateClient validates collaborators and builds the client.
func NewRepositoryUpdateClient(logger *zap.Logger, gitWorkspace GitWorkspace, pullRequestService PullRequestService) (*RepositoryUpdateClient, error) {
	if logger == nil {
		return nil, ErrUpdateClientLoggerMissing
	}
	if gitWorkspace == nil {
		return nil, ErrUpdateClientGitWorkspaceMissing
	}
	if pullRequestService == nil {
		return nil, ErrUpdateClientPullRequestServiceMissing
	}

	return &RepositoryUpdateClient{
		logger:             logger,
		gitWorkspace:       gitWorkspace,
		pullRequestService: pullRequestService,
	}, nil
}

// Update clones the repository into a temporary checkout, prepares the update
// branch, runs the change operation, and commits, pushes, and ensures a pull
// request when the working tree changed. In dry-run mode every mutating step
// after the operation is skipped and a synthetic reference is returned for a
// changed tree so downstream aggregation can show what a real run would do.
func (client *RepositoryUpdateClient) Update(executionContext context.Context, operation ChangeOperation, options UpdateOptions) (string, error) {
	repositoryKey := RepositoryKey(options.Organization, options.RepositoryName)

	checkoutDirectory, checkoutError := os.MkdirTemp("", checkoutDirectoryPatternConstant)
	if checkoutError != nil {
		return "", fmt.Errorf(checkoutCreationErrorTemplateConstant, checkoutError)
	}
	defer func() {
		_ = os.RemoveAll(checkoutDirectory)
	}()

	remoteURL := fmt.Sprintf(repositoryRemoteURLTemplateConstant, options.Organization, options.RepositoryName)
	if cloneError := client.gitWorkspace.CloneRepository(executionContext, remoteURL, checkoutDirectory, options.Environment); cloneError != nil {
		return "", cloneError
	}
	client.logger.Debug(clonedRepositoryLogMessageConstant, zap.String(repositoryLogFieldNameConstant, repositoryKey))

	if branchError := client.gitWorkspace.EnsureBranch(executionContext, checkoutDirectory, options.BranchName); branchError != nil {
		return "", branchError
	}
	client.logger.Debug(branchPreparedLogMessageConstant,
		zap.String(repositoryLogFieldNameConstant, repositoryKey),
		zap.String(branchLogFieldNameConstant, options.BranchName))

	if _, operationError := operation.Execute(executionContext, checkoutDirectory); operationError != nil {
		return "", fmt.Errorf(changeOperationErrorTemplateConstant, options.Organization, options.RepositoryName, operationError)
	}

	treeChanged, statusError := client.gitWorkspace.HasWorkingTreeChanges(executionContext, checkoutDirectory)
	if statusError != nil {
		return "", statusError
	}
	if !treeChanged {
		client.logger.Debug(workingTreeCleanLogMessageConstant, zap.String(repositoryLogFieldNameConstant, repositoryKey))
		return "", nil
	}

	if options.DryRun {
		client.logger.Info(dryRunSkipLogMessageConstant, zap.String(repositoryLogFieldNameConstant, repositoryKey))
		return fmt.Sprintf(dryRunReferenceTemplateConstant, options.Organization, options.RepositoryName, options.BranchName), nil
	}

	if stageError := client.gitWorkspace.StageAllChanges(executionContext, checkoutDirectory); stageError != nil {
		return "", stageError
	}
	if commitError := client.gitWorkspace.CommitChanges(executionContext, checkoutDirectory, options.CommitMessage); commitError != nil {
		return "", commitError
	}
	if pushError := client.gitWorkspace.PushBranch(executionContext, checkoutDirectory, options.BranchName, options.Environment); pushError != nil {
		return "", pushError
	}

	return client.ensurePullRequest(executionContext, repositoryKey, options)
}

func (client *RepositoryUpdateClient) ensurePullRequest(executionContext context.Context, repositoryKey string, options UpdateOptions) (string, error) {
	listOptions := githubcli.PullRequestListOptions{
		State:      githubcli.PullRequestStateOpen,
		HeadBranch: options.BranchName,
	}
	existingPullRequests, listError := client.pullRequestService.ListPullRequests(executionContext, repositoryKey, listOptions, options.Environment)
	if listError != nil {
		return "", fmt.Errorf(pullRequestLookupErrorTemplateConstant, repositoryKey, listError)
	}

	updateOptions := githubcli.PullRequestUpdateOptions{Title: options.PullRequestTitle, Body: options.PullRequestBody}
	for _, existingPullRequest := range existingPullRequests {
		if existingPullRequest.HeadRefName != options.BranchName {
			continue
		}
		if updateError := client.pullRequestService.UpdatePullRequest(executionContext, repositoryKey, existingPullRequest.Number, updateOptions, options.Environment); updateError != nil {
			return "", updateError
		}
		client.logger.Info(pullRequestReusedLogMessageConstant,
			zap.String(repositoryLogFieldNameConstant, repositoryKey),
			zap.String(pullRequestLogFieldNameConstant, existingPullRequest.URL))
		return existingPullRequest.URL, nil
	}

	createOptions := githubcli.PullRequestCreateOptions{
		Title:      options.PullRequestTitle,
		Body:       options.PullRequestBody,
		HeadBranch: options.BranchName,
		Labels:     options.Labels,
	}
	pullRequestURL, createError := client.pullRequestService.CreatePullRequest(executionContext, repositoryKey, createOptions, options.Environment)
	if createError != nil {
		return "", createError
	}
	client.logger.Info(pullRequestOpenedLogMessageConstant,
		zap.String(repositoryLogFieldNameConstant, repositoryKey),
		zap.String(pullRequestLogFieldNameConstant, pullRequestURL))

	return pullRequestURL, nil
}
