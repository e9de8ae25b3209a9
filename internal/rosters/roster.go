package rosters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultSolutionsDirectoryConstant   = "."
	rosterFileExtensionYAMLConstant     = ".yaml"
	rosterFileExtensionYMLConstant      = ".yml"
	rosterDirectoryReadErrorTemplate    = "unable to read roster directory %s: %w"
	rosterFileReadErrorTemplate         = "unable to read roster file %s: %w"
	rosterFileParseErrorTemplate        = "unable to parse roster file %s: %w"
	rosterEmptyDirectoryMessageTemplate = "roster directory %s contains no roster files"
	entryOrganizationMissingTemplate    = "roster entry %d in %s missing organization"
	entryRepositoriesMissingTemplate    = "roster entry %d in %s lists no repositories"
	entryVersionLockInvalidTemplate     = "roster entry %d in %s has unsupported version lock %q"
)

// VersionLockPolicy constrains how large an automatic dependency bump may be.
type VersionLockPolicy string

// Supported version lock policies, matching dotnet-outdated's vocabulary.
const (
	VersionLockMajor VersionLockPolicy = VersionLockPolicy("Major")
	VersionLockMinor VersionLockPolicy = VersionLockPolicy("Minor")
	VersionLockNone  VersionLockPolicy = VersionLockPolicy("None")
)

var knownVersionLockPolicies = map[VersionLockPolicy]struct{}{
	VersionLockMajor: {},
	VersionLockMinor: {},
	VersionLockNone:  {},
}

// NugetUpdatesConfiguration captures the nuget_dependency_updates feature gate settings.
type NugetUpdatesConfiguration struct {
	Enabled            bool              `yaml:"enabled"`
	SolutionsDirectory string            `yaml:"solutions_dir"`
	CheckOnly          bool              `yaml:"check_only"`
	VersionLock        VersionLockPolicy `yaml:"version_lock"`
	Exclusions         []string          `yaml:"exclusions"`
	Inclusions         []string          `yaml:"inclusions"`
}

// FeatureConfiguration groups the independently toggleable capabilities of a roster entry.
type FeatureConfiguration struct {
	NugetDependencyUpdates *NugetUpdatesConfiguration `yaml:"nuget_dependency_updates"`
}

// RosterEntry is one configuration record read from the roster.
type RosterEntry struct {
	Organization    string               `yaml:"org"`
	RepositoryNames []string             `yaml:"name"`
	Description     string               `yaml:"description"`
	Features        FeatureConfiguration `yaml:"features"`
}

// NugetUpdatesEnabled reports whether the nuget_dependency_updates feature gate is open.
func (entry RosterEntry) NugetUpdatesEnabled() bool {
	return entry.Features.NugetDependencyUpdates != nil && entry.Features.NugetDependencyUpdates.Enabled
}

// EffectiveNugetSettings holds feature settings with documented defaults applied.
type EffectiveNugetSettings struct {
	SolutionsDirectory string
	CheckOnly          bool
	VersionLock        VersionLockPolicy
	Exclusions         []string
	Inclusions         []string
}

// ResolveNugetSettings applies documented defaults to the entry's feature configuration.
func (entry RosterEntry) ResolveNugetSettings() EffectiveNugetSettings {
	settings := EffectiveNugetSettings{
		SolutionsDirectory: defaultSolutionsDirectoryConstant,
		VersionLock:        VersionLockMinor,
	}

	featureConfiguration := entry.Features.NugetDependencyUpdates
	if featureConfiguration == nil {
		return settings
	}

	if trimmedDirectory := strings.TrimSpace(featureConfiguration.SolutionsDirectory); len(trimmedDirectory) > 0 {
		settings.SolutionsDirectory = trimmedDirectory
	}
	settings.CheckOnly = featureConfiguration.CheckOnly
	if len(featureConfiguration.VersionLock) > 0 {
		settings.VersionLock = featureConfiguration.VersionLock
	}
	settings.Exclusions = append([]string{}, featureConfiguration.Exclusions...)
	settings.Inclusions = append([]string{}, featureConfiguration.Inclusions...)

	return settings
}

type rosterDocument struct {
	Repositories []RosterEntry `yaml:"repositories"`
}

// LoadRoster reads every roster file in the configuration directory, in sorted
// file order, validating each entry at load time.
func LoadRoster(configurationDirectory string) ([]RosterEntry, error) {
	directoryEntries, readError := os.ReadDir(configurationDirectory)
	if readError != nil {
		return nil, fmt.Errorf(rosterDirectoryReadErrorTemplate, configurationDirectory, readError)
	}

	rosterFilePaths := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		fileExtension := strings.ToLower(filepath.Ext(directoryEntry.Name()))
		if fileExtension != rosterFileExtensionYAMLConstant && fileExtension != rosterFileExtensionYMLConstant {
			continue
		}
		rosterFilePaths = append(rosterFilePaths, filepath.Join(configurationDirectory, directoryEntry.Name()))
	}
	sort.Strings(rosterFilePaths)

	if len(rosterFilePaths) == 0 {
		return nil, fmt.Errorf(rosterEmptyDirectoryMessageTemplate, configurationDirectory)
	}

	var rosterEntries []RosterEntry
	for _, rosterFilePath := range rosterFilePaths {
		fileEntries, fileError := loadRosterFile(rosterFilePath)
		if fileError != nil {
			return nil, fileError
		}
		rosterEntries = append(rosterEntries, fileEntries...)
	}

	return rosterEntries, nil
}

func loadRosterFile(rosterFilePath string) ([]RosterEntry, error) {
	contentBytes, readError := os.ReadFile(rosterFilePath)
	if readError != nil {
		return nil, fmt.Errorf(rosterFileReadErrorTemplate, rosterFilePath, readError)
	}

	var document rosterDocument
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return nil, fmt.Errorf(rosterFileParseErrorTemplate, rosterFilePath, unmarshalError)
	}

	for entryIndex, rosterEntry := range document.Repositories {
		if validationError := validateEntry(rosterEntry, entryIndex, rosterFilePath); validationError != nil {
			return nil, validationError
		}
	}

	return document.Repositories, nil
}

func validateEntry(entry RosterEntry, entryIndex int, rosterFilePath string) error {
	if len(strings.TrimSpace(entry.Organization)) == 0 {
		return fmt.Errorf(entryOrganizationMissingTemplate, entryIndex, rosterFilePath)
	}
	if len(entry.RepositoryNames) == 0 {
		return fmt.Errorf(entryRepositoriesMissingTemplate, entryIndex, rosterFilePath)
	}

	featureConfiguration := entry.Features.NugetDependencyUpdates
	if featureConfiguration != nil && len(featureConfiguration.VersionLock) > 0 {
		if _, known := knownVersionLockPolicies[featureConfiguration.VersionLock]; !known {
			return fmt.Errorf(entryVersionLockInvalidTemplate, entryIndex, rosterFilePath, featureConfiguration.VersionLock)
		}
	}

	return nil
}
