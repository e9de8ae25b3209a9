package updates

import (
	"fmt"
	"time"
)

const repositoryKeyTemplateConstant = "%s/%s"

// RepositoryKey identifies one repository as "org/name" within a run report.
func RepositoryKey(organization string, repositoryName string) string {
	return fmt.Sprintf(repositoryKeyTemplateConstant, organization, repositoryName)
}

// RunMetadata carries the run-level counters and flags of one update run.
type RunMetadata struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	IsDryRun      bool      `json:"is_dry_run"`
	Success       bool      `json:"success"`
	ReposAnalysed int       `json:"repos_analysed"`
	ReposUpdated  int       `json:"repos_updated"`
}

// FeatureReportEntry pairs a roster entry description with the outdated-package
// report produced for it. Repositories configured under several roster entries
// accumulate one entry per pass.
type FeatureReportEntry struct {
	Description string         `json:"description"`
	Report      OutdatedReport `json:"report"`
}

// RepositoryOutcome records what happened to one repository during a run.
// Exactly one of the updated shape (Reports plus PullRequest) or the errored
// shape (Error) is populated; no-op repositories are absent from the report.
type RepositoryOutcome struct {
	Reports     []FeatureReportEntry `json:"reports,omitempty"`
	PullRequest string               `json:"pull_request,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// RunReport is the sealed artifact of one update run.
type RunReport struct {
	Metadata     RunMetadata                  `json:"metadata"`
	Repositories map[string]RepositoryOutcome `json:"repos"`
}

// ReportAccumulator is the mutable aggregation context the orchestration loop
// owns. Collaborators return values; only the loop mutates the accumulator.
type ReportAccumulator struct {
	metadata RunMetadata
	outcomes map[string]RepositoryOutcome
}

// NewReportAccumulator starts a run aggregate with the start time stamped and
// success assumed until an error is recorded.
func NewReportAccumulator(startTime time.Time, dryRun bool) *ReportAccumulator {
	return &ReportAccumulator{
		metadata: RunMetadata{
			StartTime: startTime,
			IsDryRun:  dryRun,
			Success:   true,
		},
		outcomes: make(map[string]RepositoryOutcome),
	}
}

// RecordAnalysed counts a repository whose change operation completed,
// whether or not it produced updates.
func (accumulator *ReportAccumulator) RecordAnalysed() {
	accumulator.metadata.ReposAnalysed++
}

// RecordUpdate appends a report entry for the repository and notes the pull
// request reference. A repository configured more than once accumulates report
// entries under the same key; the pull request reference is last-write-wins.
func (accumulator *ReportAccumulator) RecordUpdate(repositoryKey string, description string, report OutdatedReport, pullRequestReference string) {
	outcome := accumulator.outcomes[repositoryKey]
	outcome.Error = ""
	outcome.Reports = append(outcome.Reports, FeatureReportEntry{Description: description, Report: report})
	outcome.PullRequest = pullRequestReference
	accumulator.outcomes[repositoryKey] = outcome

	if len(pullRequestReference) > 0 {
		accumulator.metadata.ReposUpdated++
	}
}

// RecordError marks the repository as errored, discarding any earlier updated
// shape for the key, and flags the run unsuccessful. Errors are terminal for
// the repository within the current pass.
func (accumulator *ReportAccumulator) RecordError(repositoryKey string, failure error) {
	accumulator.outcomes[repositoryKey] = RepositoryOutcome{Error: failure.Error()}
	accumulator.metadata.Success = false
}

// MarkUnsuccessful flags the run unsuccessful without recording a repository
// outcome, used for organization-scoped faults that skip whole entries.
func (accumulator *ReportAccumulator) MarkUnsuccessful() {
	accumulator.metadata.Success = false
}

// Seal stamps the end time and produces the immutable run report.
func (accumulator *ReportAccumulator) Seal(endTime time.Time) RunReport {
	accumulator.metadata.EndTime = endTime

	sealedOutcomes := make(map[string]RepositoryOutcome, len(accumulator.outcomes))
	for repositoryKey, outcome := range accumulator.outcomes {
		sealedOutcomes[repositoryKey] = outcome
	}

	return RunReport{
		Metadata:     accumulator.metadata,
		Repositories: sealedOutcomes,
	}
}
