package cli

import (
	"os"

	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/execshell"
	"github.com/nupdate/nupdate/internal/githubauth"
	"github.com/nupdate/nupdate/internal/githubcli"
	"github.com/nupdate/nupdate/internal/gitrepo"
	"github.com/nupdate/nupdate/internal/reportstore"
	"github.com/nupdate/nupdate/internal/ui"
	"github.com/nupdate/nupdate/internal/updates"
	"github.com/nupdate/nupdate/internal/utils"
)

// defaultRunnerResolver assembles the production update pipeline: one shell
// executor shared by git, gh, dotnet-outdated, and curl invocations, wrapped
// by the repository manager, GitHub client, update client, report store, and
// finally the orchestration service.
type defaultRunnerResolver struct{}

func (resolver *defaultRunnerResolver) Resolve(logger *zap.Logger) (updates.UpdateRunner, error) {
	commandEvents := ui.NewCommandEventWriter(
		utils.NewFlushingWriter(os.Stdout),
		utils.NewFlushingWriter(os.Stderr),
	)

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), commandEvents)
	if executorError != nil {
		return nil, executorError
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	if managerError != nil {
		return nil, managerError
	}

	gitHubClient, clientError := githubcli.NewClient(shellExecutor)
	if clientError != nil {
		return nil, clientError
	}

	updateClient, updateClientError := updates.NewRepositoryUpdateClient(logger, repositoryManager, gitHubClient)
	if updateClientError != nil {
		return nil, updateClientError
	}

	reportStore, storeError := reportstore.NewStore(logger, shellExecutor, "", nil, nil)
	if storeError != nil {
		return nil, storeError
	}

	return updates.NewService(updates.ServiceDependencies{
		Logger:            logger,
		SessionProvider:   githubauth.NewSessionResolver(nil),
		RepositoryUpdater: updateClient,
		OperationFactory:  updates.DotnetOperationFactory{DotnetExecutor: shellExecutor},
		ReportSink:        reportStore,
	})
}
