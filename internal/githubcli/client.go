package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nupdate/nupdate/internal/execshell"
)

const (
	pullRequestSubcommandConstant           = "pr"
	listSubcommandConstant                  = "list"
	createSubcommandConstant                = "create"
	editSubcommandConstant                  = "edit"
	jsonFlagConstant                        = "--json"
	repoFlagConstant                        = "--repo"
	stateFlagConstant                       = "--state"
	headFlagConstant                        = "--head"
	limitFlagConstant                       = "--limit"
	titleFlagConstant                       = "--title"
	bodyFlagConstant                        = "--body"
	labelFlagConstant                       = "--label"
	repositoryFieldNameConstant             = "repository"
	headBranchFieldNameConstant             = "head_branch"
	titleFieldNameConstant                  = "title"
	stateFieldNameConstant                  = "state"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	pullRequestLimitDefaultValueConstant    = 100
	pullRequestJSONFieldsConstant           = "number,title,headRefName,url"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	listPullRequestsOperationNameConstant   = OperationName("ListPullRequests")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	updatePullRequestOperationNameConstant  = OperationName("UpdatePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestState describes acceptable GitHub pull request states.
type PullRequestState string

// Pull request state enumerations.
const (
	PullRequestStateOpen   PullRequestState = PullRequestState("open")
	PullRequestStateClosed PullRequestState = PullRequestState("closed")
	PullRequestStateMerged PullRequestState = PullRequestState("merged")
)

// PullRequest represents minimal PR details returned by GitHub CLI.
type PullRequest struct {
	Number      int
	Title       string
	HeadRefName string
	URL         string
}

// PullRequestListOptions configures ListPullRequests queries.
type PullRequestListOptions struct {
	State       PullRequestState
	HeadBranch  string
	ResultLimit int
}

// PullRequestCreateOptions configures CreatePullRequest invocations.
type PullRequestCreateOptions struct {
	Title      string
	Body       string
	HeadBranch string
	Labels     []string
}

// PullRequestUpdateOptions configures UpdatePullRequest invocations.
type PullRequestUpdateOptions struct {
	Title string
	Body  string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ListPullRequests enumerates pull requests using gh pr list.
func (client *Client) ListPullRequests(executionContext context.Context, repository string, options PullRequestListOptions, environment map[string]string) ([]PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.HeadBranch)) == 0 {
		return nil, InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(options.State) == 0 {
		return nil, InvalidInputError{FieldName: stateFieldNameConstant, Message: requiredValueMessageConstant}
	}

	resultLimit := options.ResultLimit
	if resultLimit <= 0 {
		resultLimit = pullRequestLimitDefaultValueConstant
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			listSubcommandConstant,
			repoFlagConstant,
			repositoryIdentifier,
			stateFlagConstant,
			string(options.State),
			headFlagConstant,
			options.HeadBranch,
			jsonFlagConstant,
			pullRequestJSONFieldsConstant,
			limitFlagConstant,
			strconv.Itoa(resultLimit),
		},
		EnvironmentVariables: environment,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: executionError}
	}

	var response []struct {
		Number      int    `json:"number"`
		Title       string `json:"title"`
		HeadRefName string `json:"headRefName"`
		URL         string `json:"url"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
	}

	pullRequests := make([]PullRequest, 0, len(response))
	for _, pullRequestEntry := range response {
		pullRequests = append(pullRequests, PullRequest{
			Number:      pullRequestEntry.Number,
			Title:       pullRequestEntry.Title,
			HeadRefName: pullRequestEntry.HeadRefName,
			URL:         pullRequestEntry.URL,
		})
	}

	return pullRequests, nil
}

// CreatePullRequest opens a pull request using gh pr create and returns its URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repository string, options PullRequestCreateOptions, environment map[string]string) (string, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return "", InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.HeadBranch)) == 0 {
		return "", InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.Title)) == 0 {
		return "", InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		headFlagConstant,
		options.HeadBranch,
		titleFlagConstant,
		options.Title,
		bodyFlagConstant,
		options.Body,
	}
	for _, labelName := range options.Labels {
		commandArguments = append(commandArguments, labelFlagConstant, labelName)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:            commandArguments,
		EnvironmentVariables: environment,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// UpdatePullRequest refreshes the title and body of an existing pull request.
func (client *Client) UpdatePullRequest(executionContext context.Context, repository string, pullRequestNumber int, options PullRequestUpdateOptions, environment map[string]string) error {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			editSubcommandConstant,
			strconv.Itoa(pullRequestNumber),
			repoFlagConstant,
			repositoryIdentifier,
			titleFlagConstant,
			options.Title,
			bodyFlagConstant,
			options.Body,
		},
		EnvironmentVariables: environment,
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: updatePullRequestOperationNameConstant, Cause: executionError}
	}

	return nil
}
