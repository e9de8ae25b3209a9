package githubcli_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nupdate/nupdate/internal/execshell"
	"github.com/nupdate/nupdate/internal/githubcli"
)

const (
	testRepositoryIdentifierConstant      = "contoso/widgets"
	testHeadBranchConstant                = "nupdate/dependency-updates"
	testPullRequestURLConstant            = "https://github.com/contoso/widgets/pull/17"
	testMissingRepositoryCaseNameConstant = "missing_repository"
	testMissingHeadBranchCaseNameConstant = "missing_head_branch"
	testMissingStateCaseNameConstant      = "missing_state"
)

type recordingGitHubExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.CommandDetails
}

func (executor *recordingGitHubExecutor) ExecuteGitHubCLI(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details)
	return executor.executionResult, executor.executionError
}

func TestNewClientRequiresExecutor(testInstance *testing.T) {
	client, creationError := githubcli.NewClient(nil)
	require.ErrorIs(testInstance, creationError, githubcli.ErrExecutorNotConfigured)
	require.Nil(testInstance, client)
}

func TestListPullRequestsValidation(testInstance *testing.T) {
	testCases := []struct {
		name       string
		repository string
		options    githubcli.PullRequestListOptions
	}{
		{
			name:       testMissingRepositoryCaseNameConstant,
			repository: "  ",
			options:    githubcli.PullRequestListOptions{State: githubcli.PullRequestStateOpen, HeadBranch: testHeadBranchConstant},
		},
		{
			name:       testMissingHeadBranchCaseNameConstant,
			repository: testRepositoryIdentifierConstant,
			options:    githubcli.PullRequestListOptions{State: githubcli.PullRequestStateOpen},
		},
		{
			name:       testMissingStateCaseNameConstant,
			repository: testRepositoryIdentifierConstant,
			options:    githubcli.PullRequestListOptions{HeadBranch: testHeadBranchConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, creationError := githubcli.NewClient(&recordingGitHubExecutor{})
			require.NoError(testInstance, creationError)

			pullRequests, listError := client.ListPullRequests(context.Background(), testCase.repository, testCase.options, nil)
			require.Error(testInstance, listError)
			require.IsType(testInstance, githubcli.InvalidInputError{}, listError)
			require.Nil(testInstance, pullRequests)
		})
	}
}

func TestListPullRequestsDecodesResponse(testInstance *testing.T) {
	executor := &recordingGitHubExecutor{
		executionResult: execshell.ExecutionResult{
			StandardOutput: `[{"number":17,"title":"NuGet dependency updates","headRefName":"` + testHeadBranchConstant + `","url":"` + testPullRequestURLConstant + `"}]`,
		},
	}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	pullRequests, listError := client.ListPullRequests(context.Background(), testRepositoryIdentifierConstant, githubcli.PullRequestListOptions{
		State:      githubcli.PullRequestStateOpen,
		HeadBranch: testHeadBranchConstant,
	}, nil)
	require.NoError(testInstance, listError)
	require.Len(testInstance, pullRequests, 1)
	require.Equal(testInstance, 17, pullRequests[0].Number)
	require.Equal(testInstance, testPullRequestURLConstant, pullRequests[0].URL)

	require.Len(testInstance, executor.recordedCommands, 1)
	require.Contains(testInstance, executor.recordedCommands[0].Arguments, "--head")
	require.Contains(testInstance, executor.recordedCommands[0].Arguments, testHeadBranchConstant)
}

func TestCreatePullRequestReturnsTrimmedURL(testInstance *testing.T) {
	executor := &recordingGitHubExecutor{
		executionResult: execshell.ExecutionResult{StandardOutput: testPullRequestURLConstant + "\n"},
	}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	pullRequestURL, createError := client.CreatePullRequest(context.Background(), testRepositoryIdentifierConstant, githubcli.PullRequestCreateOptions{
		Title:      "NuGet dependency updates",
		Body:       "Automated update",
		HeadBranch: testHeadBranchConstant,
	}, map[string]string{"GH_TOKEN": "token"})
	require.NoError(testInstance, createError)
	require.Equal(testInstance, testPullRequestURLConstant, pullRequestURL)

	require.Len(testInstance, executor.recordedCommands, 1)
	require.Equal(testInstance, "token", executor.recordedCommands[0].EnvironmentVariables["GH_TOKEN"])
}

func TestUpdatePullRequestArguments(testInstance *testing.T) {
	executor := &recordingGitHubExecutor{}
	client, creationError := githubcli.NewClient(executor)
	require.NoError(testInstance, creationError)

	updateError := client.UpdatePullRequest(context.Background(), testRepositoryIdentifierConstant, 17, githubcli.PullRequestUpdateOptions{
		Title: "NuGet dependency updates",
		Body:  "Refreshed",
	}, nil)
	require.NoError(testInstance, updateError)

	require.Len(testInstance, executor.recordedCommands, 1)
	require.Equal(testInstance, []string{"pr", "edit", "17", "--repo", testRepositoryIdentifierConstant, "--title", "NuGet dependency updates", "--body", "Refreshed"}, executor.recordedCommands[0].Arguments)
}
