package updates

import "strings"

// Default values applied when neither configuration nor flags supply one.
const (
	defaultBranchNameConstant       = "nupdate/dependency-updates"
	defaultCommitMessageConstant    = "Update NuGet dependencies"
	defaultPullRequestTitleConstant = "Automated NuGet dependency updates"
	defaultConfigDirectoryConstant  = "."
)

// Configuration aggregates settings for the update command, populated from the
// application configuration file under the tools.update section.
type Configuration struct {
	ConfigDirectory  string   `mapstructure:"config_dir"`
	BranchName       string   `mapstructure:"branch"`
	CommitMessage    string   `mapstructure:"commit_message"`
	PullRequestTitle string   `mapstructure:"pr_title"`
	PullRequestBody  string   `mapstructure:"pr_body"`
	Labels           []string `mapstructure:"labels"`
	DryRun           bool     `mapstructure:"dry_run"`
}

// DefaultConfiguration supplies baseline values for the update command.
func DefaultConfiguration() Configuration {
	return Configuration{
		ConfigDirectory:  defaultConfigDirectoryConstant,
		BranchName:       defaultBranchNameConstant,
		CommitMessage:    defaultCommitMessageConstant,
		PullRequestTitle: defaultPullRequestTitleConstant,
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".config_dir":     defaults.ConfigDirectory,
		configurationKeyPrefix + ".branch":         defaults.BranchName,
		configurationKeyPrefix + ".commit_message": defaults.CommitMessage,
		configurationKeyPrefix + ".pr_title":       defaults.PullRequestTitle,
		configurationKeyPrefix + ".dry_run":        defaults.DryRun,
	}
}

// Sanitize trims configured values and removes empty label entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.ConfigDirectory = strings.TrimSpace(configuration.ConfigDirectory)
	sanitized.BranchName = strings.TrimSpace(configuration.BranchName)
	sanitized.CommitMessage = strings.TrimSpace(configuration.CommitMessage)
	sanitized.PullRequestTitle = strings.TrimSpace(configuration.PullRequestTitle)
	sanitized.Labels = sanitizeLabels(configuration.Labels)
	return sanitized
}

func sanitizeLabels(candidateLabels []string) []string {
	sanitizedLabels := make([]string, 0, len(candidateLabels))
	for _, labelCandidate := range candidateLabels {
		trimmedLabel := strings.TrimSpace(labelCandidate)
		if len(trimmedLabel) == 0 {
			continue
		}
		sanitizedLabels = append(sanitizedLabels, trimmedLabel)
	}
	if len(sanitizedLabels) == 0 {
		return nil
	}
	return sanitizedLabels
}
