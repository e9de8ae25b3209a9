package updates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/rosters"
)

const (
	updateCommandUseConstant                = "update"
	updateCommandShortDescriptionConstant   = "Open dependency-update pull requests across the fleet"
	updateCommandLongDescriptionConstant    = "update walks the repository roster, runs dotnet-outdated in each enabled repository, and opens or refreshes a pull request where updates were applied."
	unexpectedArgumentsErrorMessageConstant = "update does not accept positional arguments"
	commandExecutionErrorTemplateConstant   = "update failed: %w"
	rosterLoadErrorTemplateConstant         = "unable to load roster: %w"
	configDirectoryFlagNameConstant         = "config-directory"
	configDirectoryFlagDescriptionConstant  = "Directory containing roster YAML files"
	branchFlagNameConstant                  = "branch-name"
	branchFlagDescriptionConstant           = "Branch to create or reuse for dependency updates"
	pullRequestTitleFlagNameConstant        = "pr-title"
	pullRequestTitleFlagDescriptionConstant = "Title for created or refreshed pull requests; {solutions_dir} expands per repository"
	updateDryRunFlagNameConstant            = "dry-run"
	updateDryRunFlagDescriptionConstant     = "Analyse repositories without pushing branches or opening pull requests"
	serviceResolverMissingMessageConstant   = "update command service resolver not configured"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current update command configuration.
type ConfigurationProvider func() Configuration

// RosterLoader reads roster entries from a configuration directory.
type RosterLoader func(configurationDirectory string) ([]rosters.RosterEntry, error)

// UpdateRunner executes an orchestration run over roster entries.
type UpdateRunner interface {
	Run(executionContext context.Context, rosterEntries []rosters.RosterEntry, options RunOptions) (RunReport, error)
}

// RunnerResolver creates update runners for the command.
type RunnerResolver interface {
	Resolve(logger *zap.Logger) (UpdateRunner, error)
}

// CommandBuilder assembles the update command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	RunnerResolver        RunnerResolver
	RosterLoader          RosterLoader
}

// Build constructs the update command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	if builder.RunnerResolver == nil {
		return nil, errors.New(serviceResolverMissingMessageConstant)
	}

	updateCommand := &cobra.Command{
		Use:   updateCommandUseConstant,
		Short: updateCommandShortDescriptionConstant,
		Long:  updateCommandLongDescriptionConstant,
		RunE:  builder.runUpdate,
	}

	updateCommand.Flags().String(configDirectoryFlagNameConstant, "", configDirectoryFlagDescriptionConstant)
	updateCommand.Flags().String(branchFlagNameConstant, "", branchFlagDescriptionConstant)
	updateCommand.Flags().String(pullRequestTitleFlagNameConstant, "", pullRequestTitleFlagDescriptionConstant)
	updateCommand.Flags().Bool(updateDryRunFlagNameConstant, false, updateDryRunFlagDescriptionConstant)

	return updateCommand, nil
}

func (builder *CommandBuilder) runUpdate(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	configurationDirectory, runOptions, optionsError := builder.parseRunOptions(command)
	if optionsError != nil {
		return optionsError
	}

	rosterEntries, rosterError := builder.resolveRosterLoader()(configurationDirectory)
	if rosterError != nil {
		return fmt.Errorf(rosterLoadErrorTemplateConstant, rosterError)
	}

	logger := builder.resolveLogger()
	updateRunner, resolverError := builder.RunnerResolver.Resolve(logger)
	if resolverError != nil {
		return resolverError
	}

	if _, runError := updateRunner.Run(command.Context(), rosterEntries, runOptions); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	return nil
}

func (builder *CommandBuilder) parseRunOptions(command *cobra.Command) (string, RunOptions, error) {
	configuration := builder.resolveConfiguration()

	configDirectoryFlagValue, configDirectoryFlagError := command.Flags().GetString(configDirectoryFlagNameConstant)
	if configDirectoryFlagError != nil {
		return "", RunOptions{}, configDirectoryFlagError
	}
	configurationDirectory := selectStringValue(configDirectoryFlagValue, configuration.ConfigDirectory)

	branchFlagValue, branchFlagError := command.Flags().GetString(branchFlagNameConstant)
	if branchFlagError != nil {
		return "", RunOptions{}, branchFlagError
	}
	branchName := selectStringValue(branchFlagValue, configuration.BranchName)

	pullRequestTitleFlagValue, pullRequestTitleFlagError := command.Flags().GetString(pullRequestTitleFlagNameConstant)
	if pullRequestTitleFlagError != nil {
		return "", RunOptions{}, pullRequestTitleFlagError
	}
	pullRequestTitle := selectStringValue(pullRequestTitleFlagValue, configuration.PullRequestTitle)

	dryRunValue := configuration.DryRun
	if command.Flags().Changed(updateDryRunFlagNameConstant) {
		flagDryRunValue, dryRunFlagError := command.Flags().GetBool(updateDryRunFlagNameConstant)
		if dryRunFlagError != nil {
			return "", RunOptions{}, dryRunFlagError
		}
		dryRunValue = flagDryRunValue
	}

	runOptions := RunOptions{
		BranchName:       branchName,
		CommitMessage:    configuration.CommitMessage,
		PullRequestTitle: pullRequestTitle,
		PullRequestBody:  configuration.PullRequestBody,
		Labels:           configuration.Labels,
		DryRun:           dryRunValue,
	}

	return configurationDirectory, runOptions, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider().Sanitize()
	}

	defaults := DefaultConfiguration()
	if len(configuration.ConfigDirectory) == 0 {
		configuration.ConfigDirectory = defaults.ConfigDirectory
	}
	if len(configuration.BranchName) == 0 {
		configuration.BranchName = defaults.BranchName
	}
	if len(configuration.CommitMessage) == 0 {
		configuration.CommitMessage = defaults.CommitMessage
	}
	if len(configuration.PullRequestTitle) == 0 {
		configuration.PullRequestTitle = defaults.PullRequestTitle
	}

	return configuration
}

func (builder *CommandBuilder) resolveRosterLoader() RosterLoader {
	if builder.RosterLoader != nil {
		return builder.RosterLoader
	}
	return rosters.LoadRoster
}

func selectStringValue(flagValue string, configurationValue string) string {
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue
	}

	return strings.TrimSpace(configurationValue)
}
