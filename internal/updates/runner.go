package updates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/githubauth"
	"github.com/nupdate/nupdate/internal/rosters"
)

const (
	reportArtifactPatternConstant           = "nupdate-report-*"
	reportArtifactFileNameConstant          = "outdated-report.json"
	solutionsDirectoryPlaceholderConstant   = "{solutions_dir}"
	artifactCreationErrorTemplateConstant   = "unable to create report artifact directory for %s: %w"
	consistencyErrorTemplateConstant        = "inconsistent outcome for %s: updates detected=%t, pull request present=%t"
	runUnsuccessfulMessageConstant          = "update run completed with errors"
	serviceLoggerMissingMessageConstant     = "update service logger not configured"
	sessionProviderMissingMessageConstant   = "update service session provider not configured"
	repositoryUpdaterMissingMessageConstant = "update service repository updater not configured"
	operationFactoryMissingMessageConstant  = "update service operation factory not configured"
	reportSinkMissingMessageConstant        = "update service report sink not configured"
	featureDisabledLogMessageConstant       = "nuget updates disabled for entry"
	sessionFailureLogMessageConstant        = "skipping organization entry: no session"
	repositoryUpdatedLogMessageConstant     = "repository updated"
	repositoryUnchangedLogMessageConstant   = "repository already up to date"
	repositoryFailedLogMessageConstant      = "repository update failed"
	inconsistentOutcomeLogMessageConstant   = "repository produced inconsistent outcome"
	organizationLogFieldNameConstant        = "organization"
	descriptionLogFieldNameConstant         = "description"
	errorLogFieldNameConstant               = "error"
)

// ErrRunUnsuccessful reports that the run finished but recorded at least one failure.
var ErrRunUnsuccessful = errors.New(runUnsuccessfulMessageConstant)

// Service construction errors.
var (
	ErrServiceLoggerMissing     = errors.New(serviceLoggerMissingMessageConstant)
	ErrSessionProviderMissing   = errors.New(sessionProviderMissingMessageConstant)
	ErrRepositoryUpdaterMissing = errors.New(repositoryUpdaterMissingMessageConstant)
	ErrOperationFactoryMissing  = errors.New(operationFactoryMissingMessageConstant)
	ErrReportSinkMissing        = errors.New(reportSinkMissingMessageConstant)
)

// ConsistencyError reports a repository whose update outcome disagrees with
// itself: updates were detected without a pull request reference, or a pull
// request reference appeared without detected updates.
type ConsistencyError struct {
	RepositoryKey      string
	UpdatesDetected    bool
	PullRequestPresent bool
}

// Error describes the inconsistent outcome.
func (consistencyError ConsistencyError) Error() string {
	return fmt.Sprintf(consistencyErrorTemplateConstant,
		consistencyError.RepositoryKey,
		consistencyError.UpdatesDetected,
		consistencyError.PullRequestPresent)
}

// SessionProvider establishes organization-scoped GitHub sessions.
type SessionProvider interface {
	ResolveSession(organization string) (githubauth.Session, error)
}

// RepositoryUpdater performs the per-repository update workflow.
type RepositoryUpdater interface {
	Update(executionContext context.Context, operation ChangeOperation, options UpdateOptions) (string, error)
}

// ChangeOperationFactory builds a change operation bound to one repository's
// effective settings and its report artifact path.
type ChangeOperationFactory interface {
	NewOperation(settings rosters.EffectiveNugetSettings, reportPath string) (ChangeOperation, error)
}

// ReportSink persists the sealed run report.
type ReportSink interface {
	Persist(executionContext context.Context, report RunReport, dryRun bool) error
}

// RunOptions parameterizes one orchestration run.
type RunOptions struct {
	BranchName       string
	CommitMessage    string
	PullRequestTitle string
	PullRequestBody  string
	Labels           []string
	DryRun           bool
}

// ServiceDependencies enumerates Service collaborators.
type ServiceDependencies struct {
	Logger            *zap.Logger
	SessionProvider   SessionProvider
	RepositoryUpdater RepositoryUpdater
	OperationFactory  ChangeOperationFactory
	ReportSink        ReportSink
	Clock             func() time.Time
}

// Service walks the roster sequentially, isolating failures per organization
// and per repository, and aggregates outcomes into one run report.
type Service struct {
	logger            *zap.Logger
	sessionProvider   SessionProvider
	repositoryUpdater RepositoryUpdater
	operationFactory  ChangeOperationFactory
	reportSink        ReportSink
	clock             func() time.Time
}

// NewService validates dependencies and constructs the orchestration service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrServiceLoggerMissing
	}
	if dependencies.SessionProvider == nil {
		return nil, ErrSessionProviderMissing
	}
	if dependencies.RepositoryUpdater == nil {
		return nil, ErrRepositoryUpdaterMissing
	}
	if dependencies.OperationFactory == nil {
		return nil, ErrOperationFactoryMissing
	}
	if dependencies.ReportSink == nil {
		return nil, ErrReportSinkMissing
	}

	resolvedClock := dependencies.Clock
	if resolvedClock == nil {
		resolvedClock = time.Now
	}

	return &Service{
		logger:            dependencies.Logger,
		sessionProvider:   dependencies.SessionProvider,
		repositoryUpdater: dependencies.RepositoryUpdater,
		operationFactory:  dependencies.OperationFactory,
		reportSink:        dependencies.ReportSink,
		clock:             resolvedClock,
	}, nil
}

// Run processes every enabled roster entry, seals the run report, and hands it
// to the report sink. The report is returned even when the run failed;
// ErrRunUnsuccessful signals recorded failures, while a sink error is returned
// as-is so persistence faults stay distinguishable.
func (service *Service) Run(executionContext context.Context, rosterEntries []rosters.RosterEntry, options RunOptions) (RunReport, error) {
	accumulator := NewReportAccumulator(service.clock().UTC(), options.DryRun)

	for _, rosterEntry := range rosterEntries {
		if !rosterEntry.NugetUpdatesEnabled() {
			service.logger.Debug(featureDisabledLogMessageConstant,
				zap.String(organizationLogFieldNameConstant, rosterEntry.Organization),
				zap.String(descriptionLogFieldNameConstant, rosterEntry.Description))
			continue
		}

		session, sessionError := service.sessionProvider.ResolveSession(rosterEntry.Organization)
		if sessionError != nil {
			service.logger.Error(sessionFailureLogMessageConstant,
				zap.String(organizationLogFieldNameConstant, rosterEntry.Organization),
				zap.String(errorLogFieldNameConstant, sessionError.Error()))
			accumulator.MarkUnsuccessful()
			continue
		}

		effectiveSettings := rosterEntry.ResolveNugetSettings()
		for _, repositoryName := range rosterEntry.RepositoryNames {
			service.processRepository(executionContext, session, rosterEntry, repositoryName, effectiveSettings, options, accumulator)
		}
	}

	runReport := accumulator.Seal(service.clock().UTC())

	if persistError := service.reportSink.Persist(executionContext, runReport, options.DryRun); persistError != nil {
		return runReport, persistError
	}

	if !runReport.Metadata.Success {
		return runReport, ErrRunUnsuccessful
	}
	return runReport, nil
}

func (service *Service) processRepository(
	executionContext context.Context,
	session githubauth.Session,
	rosterEntry rosters.RosterEntry,
	repositoryName string,
	effectiveSettings rosters.EffectiveNugetSettings,
	options RunOptions,
	accumulator *ReportAccumulator,
) {
	repositoryKey := RepositoryKey(rosterEntry.Organization, repositoryName)

	artifactDirectory, artifactError := os.MkdirTemp("", reportArtifactPatternConstant)
	if artifactError != nil {
		service.recordRepositoryFailure(accumulator, repositoryKey, fmt.Errorf(artifactCreationErrorTemplateConstant, repositoryKey, artifactError))
		return
	}
	defer func() {
		_ = os.RemoveAll(artifactDirectory)
	}()
	reportArtifactPath := filepath.Join(artifactDirectory, reportArtifactFileNameConstant)

	changeOperation, factoryError := service.operationFactory.NewOperation(effectiveSettings, reportArtifactPath)
	if factoryError != nil {
		service.recordRepositoryFailure(accumulator, repositoryKey, factoryError)
		return
	}

	updateOptions := UpdateOptions{
		Organization:     rosterEntry.Organization,
		RepositoryName:   repositoryName,
		BranchName:       options.BranchName,
		CommitMessage:    options.CommitMessage,
		PullRequestTitle: interpolateSolutionsDirectory(options.PullRequestTitle, effectiveSettings.SolutionsDirectory),
		PullRequestBody:  interpolateSolutionsDirectory(options.PullRequestBody, effectiveSettings.SolutionsDirectory),
		Labels:           options.Labels,
		DryRun:           options.DryRun,
		Environment:      session.Environment(),
	}
	pullRequestReference, updateError := service.repositoryUpdater.Update(executionContext, changeOperation, updateOptions)
	if updateError != nil {
		service.recordRepositoryFailure(accumulator, repositoryKey, updateError)
		return
	}

	accumulator.RecordAnalysed()

	outdatedReport, reportExists, readError := ReadOutdatedReport(reportArtifactPath)
	if readError != nil {
		service.recordRepositoryFailure(accumulator, repositoryKey, readError)
		return
	}

	updatesDetected := reportExists && outdatedReport.HasUpdates() && !effectiveSettings.CheckOnly
	pullRequestPresent := len(pullRequestReference) > 0

	switch {
	case updatesDetected && pullRequestPresent:
		accumulator.RecordUpdate(repositoryKey, rosterEntry.Description, outdatedReport, pullRequestReference)
		service.logger.Info(repositoryUpdatedLogMessageConstant,
			zap.String(repositoryLogFieldNameConstant, repositoryKey),
			zap.String(pullRequestLogFieldNameConstant, pullRequestReference))
	case !updatesDetected && !pullRequestPresent:
		service.logger.Debug(repositoryUnchangedLogMessageConstant, zap.String(repositoryLogFieldNameConstant, repositoryKey))
	default:
		consistencyFailure := ConsistencyError{
			RepositoryKey:      repositoryKey,
			UpdatesDetected:    updatesDetected,
			PullRequestPresent: pullRequestPresent,
		}
		accumulator.RecordError(repositoryKey, consistencyFailure)
		service.logger.Error(inconsistentOutcomeLogMessageConstant,
			zap.String(repositoryLogFieldNameConstant, repositoryKey),
			zap.String(errorLogFieldNameConstant, consistencyFailure.Error()))
	}
}

// interpolateSolutionsDirectory expands the solutions-directory placeholder in
// configured pull request templates with the entry's effective value.
func interpolateSolutionsDirectory(templateText string, solutionsDirectory string) string {
	return strings.ReplaceAll(templateText, solutionsDirectoryPlaceholderConstant, solutionsDirectory)
}

func (service *Service) recordRepositoryFailure(accumulator *ReportAccumulator, repositoryKey string, failure error) {
	accumulator.RecordError(repositoryKey, failure)
	service.logger.Error(repositoryFailedLogMessageConstant,
		zap.String(repositoryLogFieldNameConstant, repositoryKey),
		zap.String(errorLogFieldNameConstant, failure.Error()))
}
