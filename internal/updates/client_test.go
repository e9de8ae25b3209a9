package updates_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/githubcli"
	"github.com/nupdate/nupdate/internal/updates"
)

const (
	testMissingLoggerCaseNameConstant             = "missing_logger"
	testMissingGitWorkspaceCaseNameConstant       = "missing_git_workspace"
	testMissingPullRequestServiceCaseNameConstant = "missing_pull_request_service"
	testUpdateBranchNameConstant                  = "nupdate/dependency-updates"
	testCommitMessageConstant                     = "Update NuGet dependencies"
	testPullRequestTitleConstant                  = "Automated NuGet dependency updates"
	testCreatedPullRequestURLConstant             = "https://github.com/contoso/widgets/pull/11"
	testExistingPullRequestURLConstant            = "https://github.com/contoso/widgets/pull/4"
	testSyntheticReferenceConstant                = "dry-run:contoso/widgets@nupdate/dependency-updates"
	testTokenEnvironmentKeyConstant               = "GH_TOKEN"
	testTokenEnvironmentValueConstant             = "token-value"
)

type stubGitWorkspace struct {
	treeChanged    bool
	clonedRemotes  []string
	branchRequests []string
	stageCalls     int
	commitMessages []string
	pushedBranches []string
	pushedEnvs     []map[string]string
}

func (workspace *stubGitWorkspace) CloneRepository(_ context.Context, remoteURL string, _ string, _ map[string]string) error {
	workspace.clonedRemotes = append(workspace.clonedRemotes, remoteURL)
	return nil
}

func (workspace *stubGitWorkspace) EnsureBranch(_ context.Context, _ string, branchName string) error {
	workspace.branchRequests = append(workspace.branchRequests, branchName)
	return nil
}

func (workspace *stubGitWorkspace) HasWorkingTreeChanges(_ context.Context, _ string) (bool, error) {
	return workspace.treeChanged, nil
}

func (workspace *stubGitWorkspace) StageAllChanges(_ context.Context, _ string) error {
	workspace.stageCalls++
	return nil
}

func (workspace *stubGitWorkspace) CommitChanges(_ context.Context, _ string, commitMessage string) error {
	workspace.commitMessages = append(workspace.commitMessages, commitMessage)
	return nil
}

func (workspace *stubGitWorkspace) PushBranch(_ context.Context, _ string, branchName string, environment map[string]string) error {
	workspace.pushedBranches = append(workspace.pushedBranches, branchName)
	workspace.pushedEnvs = append(workspace.pushedEnvs, environment)
	return nil
}

type stubPullRequestService struct {
	existingPullRequests []githubcli.PullRequest
	createdURL           string
	listCalls            int
	createCalls          int
	updateCalls          int
	updatedNumbers       []int
}

func (service *stubPullRequestService) ListPullRequests(_ context.Context, _ string, _ githubcli.PullRequestListOptions, _ map[string]string) ([]githubcli.PullRequest, error) {
	service.listCalls++
	return service.existingPullRequests, nil
}

func (service *stubPullRequestService) CreatePullRequest(_ context.Context, _ string, _ githubcli.PullRequestCreateOptions, _ map[string]string) (string, error) {
	service.createCalls++
	return service.createdURL, nil
}

func (service *stubPullRequestService) UpdatePullRequest(_ context.Context, _ string, pullRequestNumber int, _ githubcli.PullRequestUpdateOptions, _ map[string]string) error {
	service.updateCalls++
	service.updatedNumbers = append(service.updatedNumbers, pullRequestNumber)
	return nil
}

type staticChangeOperation struct {
	changed bool
}

func (operation staticChangeOperation) Execute(_ context.Context, _ string) (bool, error) {
	return operation.changed, nil
}

func testUpdateOptions(dryRun bool) updates.UpdateOptions {
	return updates.UpdateOptions{
		Organization:     "contoso",
		RepositoryName:   "widgets",
		BranchName:       testUpdateBranchNameConstant,
		CommitMessage:    testCommitMessageConstant,
		PullRequestTitle: testPullRequestTitleConstant,
		DryRun:           dryRun,
		Environment:      map[string]string{testTokenEnvironmentKeyConstant: testTokenEnvironmentValueConstant},
	}
}

func TestNewRepositoryUpdateClientValidation(testInstance *testing.T) {
	testCases := []struct {
		name               string
		logger             *zap.Logger
		gitWorkspace       updates.GitWorkspace
		pullRequestService updates.PullRequestService
		expectedError      error
	}{
		{
			name:               testMissingLoggerCaseNameConstant,
			gitWorkspace:       &stubGitWorkspace{},
			pullRequestService: &stubPullRequestService{},
			expectedError:      updates.ErrUpdateClientLoggerMissing,
		},
		{
			name:               testMissingGitWorkspaceCaseNameConstant,
			logger:             zap.NewNop(),
			pullRequestService: &stubPullRequestService{},
			expectedError:      updates.ErrUpdateClientGitWorkspaceMissing,
		},
		{
			name:          testMissingPullRequestServiceCaseNameConstant,
			logger:        zap.NewNop(),
			gitWorkspace:  &stubGitWorkspace{},
			expectedError: updates.ErrUpdateClientPullRequestServiceMissing,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, constructionError := updates.NewRepositoryUpdateClient(testCase.logger, testCase.gitWorkspace, testCase.pullRequestService)
			require.ErrorIs(testInstance, constructionError, testCase.expectedError)
			require.Nil(testInstance, client)
		})
	}
}

func TestUpdateReturnsEmptyReferenceForUnchangedTree(testInstance *testing.T) {
	gitWorkspace := &stubGitWorkspace{treeChanged: false}
	pullRequestService := &stubPullRequestService{}

	client, constructionError := updates.NewRepositoryUpdateClient(zap.NewNop(), gitWorkspace, pullRequestService)
	require.NoError(testInstance, constructionError)

	pullRequestReference, updateError := client.Update(context.Background(), staticChangeOperation{}, testUpdateOptions(false))
	require.NoError(testInstance, updateError)
	require.Empty(testInstance, pullRequestReference)

	require.Equal(testInstance, []string{"https://github.com/contoso/widgets.git"}, gitWorkspace.clonedRemotes)
	require.Equal(testInstance, []string{testUpdateBranchNameConstant}, gitWorkspace.branchRequests)
	require.Zero(testInstance, gitWorkspace.stageCalls)
	require.Empty(testInstance, gitWorkspace.commitMessages)
	require.Empty(testInstance, gitWorkspace.pushedBranches)
	require.Zero(testInstance, pullRequestService.listCalls)
	require.Zero(testInstance, pullRequestService.createCalls)
}

func TestUpdateDryRunSkipsEveryMutatingStep(testInstance *testing.T) {
	gitWorkspace := &stubGitWorkspace{treeChanged: true}
	pullRequestService := &stubPullRequestService{}

	client, constructionError := updates.NewRepositoryUpdateClient(zap.NewNop(), gitWorkspace, pullRequestService)
	require.NoError(testInstance, constructionError)

	pullRequestReference, updateError := client.Update(context.Background(), staticChangeOperation{changed: true}, testUpdateOptions(true))
	require.NoError(testInstance, updateError)
	require.Equal(testInstance, testSyntheticReferenceConstant, pullRequestReference)

	require.Zero(testInstance, gitWorkspace.stageCalls)
	require.Empty(testInstance, gitWorkspace.commitMessages)
	require.Empty(testInstance, gitWorkspace.pushedBranches)
	require.Zero(testInstance, pullRequestService.listCalls)
	require.Zero(testInstance, pullRequestService.createCalls)
	require.Zero(testInstance, pullRequestService.updateCalls)
}

func TestUpdateOpensPullRequestForChangedTree(testInstance *testing.T) {
	gitWorkspace := &stubGitWorkspace{treeChanged: true}
	pullRequestService := &stubPullRequestService{createdURL: testCreatedPullRequestURLConstant}

	client, constructionError := updates.NewRepositoryUpdateClient(zap.NewNop(), gitWorkspace, pullRequestService)
	require.NoError(testInstance, constructionError)

	pullRequestReference, updateError := client.Update(context.Background(), staticChangeOperation{changed: true}, testUpdateOptions(false))
	require.NoError(testInstance, updateError)
	require.Equal(testInstance, testCreatedPullRequestURLConstant, pullRequestReference)

	require.Equal(testInstance, 1, gitWorkspace.stageCalls)
	require.Equal(testInstance, []string{testCommitMessageConstant}, gitWorkspace.commitMessages)
	require.Equal(testInstance, []string{testUpdateBranchNameConstant}, gitWorkspace.pushedBranches)
	require.Len(testInstance, gitWorkspace.pushedEnvs, 1)
	require.Equal(testInstance, testTokenEnvironmentValueConstant, gitWorkspace.pushedEnvs[0][testTokenEnvironmentKeyConstant])
	require.Equal(testInstance, 1, pullRequestService.listCalls)
	require.Equal(testInstance, 1, pullRequestService.createCalls)
	require.Zero(testInstance, pullRequestService.updateCalls)
}

func TestUpdateRefreshesExistingPullRequest(testInstance *testing.T) {
	gitWorkspace := &stubGitWorkspace{treeChanged: true}
	pullRequestService := &stubPullRequestService{
		existingPullRequests: []githubcli.PullRequest{
			{Number: 4, HeadRefName: testUpdateBranchNameConstant, URL: testExistingPullRequestURLConstant},
		},
	}

	client, constructionError := updates.NewRepositoryUpdateClient(zap.NewNop(), gitWorkspace, pullRequestService)
	require.NoError(testInstance, constructionError)

	pullRequestReference, updateError := client.Update(context.Background(), staticChangeOperation{changed: true}, testUpdateOptions(false))
	require.NoError(testInstance, updateError)
	require.Equal(testInstance, testExistingPullRequestURLConstant, pullRequestReference)

	require.Equal(testInstance, 1, pullRequestService.updateCalls)
	require.Equal(testInstance, []int{4}, pullRequestService.updatedNumbers)
	require.Zero(testInstance, pullRequestService.createCalls)
}
