package updates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nupdate/nupdate/internal/execshell"
	"github.com/nupdate/nupdate/internal/rosters"
)

const (
	outdatedUpgradeFlagConstant      = "--upgrade"
	outdatedVersionLockFlagConstant  = "--version-lock"
	outdatedExcludeFlagConstant      = "--exclude"
	outdatedIncludeFlagConstant      = "--include"
	outdatedOutputFlagConstant       = "--output"
	outdatedOutputFormatFlagConstant = "--output-format"
	outdatedOutputFormatJSONConstant = "json"
	outdatedRunErrorTemplate         = "dotnet-outdated run failed: %w"
	outdatedReportReadErrorTemplate  = "unable to read outdated report %s: %w"
	outdatedReportParseErrorTemplate = "unable to parse outdated report %s: %w"
)

// ErrDotnetExecutorNotConfigured indicates DotnetOutdatedOperation construction without an executor.
var ErrDotnetExecutorNotConfigured = errors.New("dotnet-outdated executor not configured")

// DotnetExecutor runs the dotnet-outdated command line tool.
type DotnetExecutor interface {
	ExecuteDotnetOutdated(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// OutdatedDependency is one package reference the analysis evaluated.
type OutdatedDependency struct {
	Name            string `json:"Name"`
	ResolvedVersion string `json:"ResolvedVersion"`
	LatestVersion   string `json:"LatestVersion"`
	UpgradeSeverity string `json:"UpgradeSeverity"`
}

// OutdatedTargetFramework groups dependencies under one target framework moniker.
type OutdatedTargetFramework struct {
	Name         string               `json:"Name"`
	Dependencies []OutdatedDependency `json:"Dependencies"`
}

// OutdatedProject is one project file the analysis inspected.
type OutdatedProject struct {
	Name             string                    `json:"Name"`
	FilePath         string                    `json:"FilePath"`
	TargetFrameworks []OutdatedTargetFramework `json:"TargetFrameworks"`
}

// OutdatedReport is the JSON artifact dotnet-outdated writes via --output.
type OutdatedReport struct {
	Projects []OutdatedProject `json:"Projects"`
}

// HasUpdates reports whether any dependency resolved below its latest version.
func (report OutdatedReport) HasUpdates() bool {
	for _, project := range report.Projects {
		for _, targetFramework := range project.TargetFrameworks {
			for _, dependency := range targetFramework.Dependencies {
				if dependency.LatestVersion != dependency.ResolvedVersion {
					return true
				}
			}
		}
	}
	return false
}

// ReadOutdatedReport loads a report artifact if the operation produced one.
// An absent file means no update candidates were evaluated and is not an error.
func ReadOutdatedReport(reportPath string) (OutdatedReport, bool, error) {
	contentBytes, readError := os.ReadFile(reportPath)
	if readError != nil {
		if os.IsNotExist(readError) {
			return OutdatedReport{}, false, nil
		}
		return OutdatedReport{}, false, fmt.Errorf(outdatedReportReadErrorTemplate, reportPath, readError)
	}

	var report OutdatedReport
	if unmarshalError := json.Unmarshal(contentBytes, &report); unmarshalError != nil {
		return OutdatedReport{}, false, fmt.Errorf(outdatedReportParseErrorTemplate, reportPath, unmarshalError)
	}

	return report, true, nil
}

// DotnetOperationFactory builds dotnet-outdated operations sharing one executor.
type DotnetOperationFactory struct {
	DotnetExecutor DotnetExecutor
}

// NewOperation binds an operation to one repository's settings and report path.
func (factory DotnetOperationFactory) NewOperation(settings rosters.EffectiveNugetSettings, reportPath string) (ChangeOperation, error) {
	return NewDotnetOutdatedOperation(factory.DotnetExecutor, settings, reportPath)
}

// DotnetOutdatedOperation runs dotnet-outdated against a checked-out
// repository, writing its JSON report to a caller-owned artifact path.
type DotnetOutdatedOperation struct {
	dotnetExecutor DotnetExecutor
	settings       rosters.EffectiveNugetSettings
	reportPath     string
}

// NewDotnetOutdatedOperation builds an operation bound to one repository's
// effective settings and report artifact path.
func NewDotnetOutdatedOperation(dotnetExecutor DotnetExecutor, settings rosters.EffectiveNugetSettings, reportPath string) (*DotnetOutdatedOperation, error) {
	if dotnetExecutor == nil {
		return nil, ErrDotnetExecutorNotConfigured
	}

	return &DotnetOutdatedOperation{
		dotnetExecutor: dotnetExecutor,
		settings:       settings,
		reportPath:     reportPath,
	}, nil
}

// Execute runs the tool inside the working copy. Changed is reported from the
// parsed report rather than the tool's exit status: true when updates were
// found and the operation was allowed to apply them.
func (operation *DotnetOutdatedOperation) Execute(executionContext context.Context, workingDirectory string) (bool, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        operation.buildArguments(workingDirectory),
		WorkingDirectory: workingDirectory,
	}

	if _, executionError := operation.dotnetExecutor.ExecuteDotnetOutdated(executionContext, commandDetails); executionError != nil {
		return false, fmt.Errorf(outdatedRunErrorTemplate, executionError)
	}

	report, reportExists, reportError := ReadOutdatedReport(operation.reportPath)
	if reportError != nil {
		return false, reportError
	}

	return reportExists && report.HasUpdates() && !operation.settings.CheckOnly, nil
}

func (operation *DotnetOutdatedOperation) buildArguments(workingDirectory string) []string {
	arguments := []string{
		outdatedOutputFlagConstant, operation.reportPath,
		outdatedOutputFormatFlagConstant, outdatedOutputFormatJSONConstant,
		outdatedVersionLockFlagConstant, string(operation.settings.VersionLock),
	}

	for _, excludedPackage := range operation.settings.Exclusions {
		arguments = append(arguments, outdatedExcludeFlagConstant, excludedPackage)
	}
	for _, includedPackage := range operation.settings.Inclusions {
		arguments = append(arguments, outdatedIncludeFlagConstant, includedPackage)
	}

	if !operation.settings.CheckOnly {
		arguments = append(arguments, outdatedUpgradeFlagConstant)
	}

	analysisPath := workingDirectory
	if trimmedSolutionsDirectory := strings.TrimSpace(operation.settings.SolutionsDirectory); len(trimmedSolutionsDirectory) > 0 && trimmedSolutionsDirectory != "." {
		analysisPath = filepath.Join(workingDirectory, trimmedSolutionsDirectory)
	}
	arguments = append(arguments, analysisPath)

	return arguments
}
