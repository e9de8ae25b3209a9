package rosters_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nupdate/nupdate/internal/rosters"
)

const (
	testDefaultsCaseNameConstant       = "defaults_applied_when_absent"
	testExplicitValuesCaseNameConstant = "explicit_values_preserved"
	testMissingFeatureCaseNameConstant = "missing_feature_configuration"
	testInvalidVersionLockCaseName     = "invalid_version_lock"
	testMissingOrganizationCaseName    = "missing_organization"
	testMissingRepositoriesCaseName    = "missing_repositories"
	testRosterFileNameConstant         = "fleet.yaml"
	testSecondRosterFileNameConstant   = "other.yml"
	testIgnoredRosterFileNameConstant  = "notes.txt"
)

func writeRosterFile(testInstance *testing.T, directory string, fileName string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, fileName), []byte(content), 0o644))
}

func TestResolveNugetSettings(testInstance *testing.T) {
	testCases := []struct {
		name     string
		entry    rosters.RosterEntry
		expected rosters.EffectiveNugetSettings
	}{
		{
			name: testDefaultsCaseNameConstant,
			entry: rosters.RosterEntry{
				Features: rosters.FeatureConfiguration{
					NugetDependencyUpdates: &rosters.NugetUpdatesConfiguration{Enabled: true},
				},
			},
			expected: rosters.EffectiveNugetSettings{
				SolutionsDirectory: ".",
				CheckOnly:          false,
				VersionLock:        rosters.VersionLockMinor,
				Exclusions:         []string{},
				Inclusions:         []string{},
			},
		},
		{
			name: testExplicitValuesCaseNameConstant,
			entry: rosters.RosterEntry{
				Features: rosters.FeatureConfiguration{
					NugetDependencyUpdates: &rosters.NugetUpdatesConfiguration{
						Enabled:            true,
						SolutionsDirectory: "src",
						CheckOnly:          true,
						VersionLock:        rosters.VersionLockMajor,
						Exclusions:         []string{"Newtonsoft.Json"},
						Inclusions:         []string{"Contoso.*"},
					},
				},
			},
			expected: rosters.EffectiveNugetSettings{
				SolutionsDirectory: "src",
				CheckOnly:          true,
				VersionLock:        rosters.VersionLockMajor,
				Exclusions:         []string{"Newtonsoft.Json"},
				Inclusions:         []string{"Contoso.*"},
			},
		},
		{
			name:  testMissingFeatureCaseNameConstant,
			entry: rosters.RosterEntry{},
			expected: rosters.EffectiveNugetSettings{
				SolutionsDirectory: ".",
				VersionLock:        rosters.VersionLockMinor,
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.entry.ResolveNugetSettings())
		})
	}
}

func TestLoadRosterReadsFilesInSortedOrder(testInstance *testing.T) {
	rosterDirectory := testInstance.TempDir()

	writeRosterFile(testInstance, rosterDirectory, testRosterFileNameConstant, `
repositories:
  - org: contoso
    name: [widgets, gadgets]
    description: Core services
    features:
      nuget_dependency_updates:
        enabled: true
        version_lock: Major
`)
	writeRosterFile(testInstance, rosterDirectory, testSecondRosterFileNameConstant, `
repositories:
  - org: fabrikam
    name: [billing]
    description: Billing services
`)
	writeRosterFile(testInstance, rosterDirectory, testIgnoredRosterFileNameConstant, "not yaml")

	rosterEntries, loadError := rosters.LoadRoster(rosterDirectory)
	require.NoError(testInstance, loadError)
	require.Len(testInstance, rosterEntries, 2)
	require.Equal(testInstance, "contoso", rosterEntries[0].Organization)
	require.Equal(testInstance, []string{"widgets", "gadgets"}, rosterEntries[0].RepositoryNames)
	require.True(testInstance, rosterEntries[0].NugetUpdatesEnabled())
	require.Equal(testInstance, "fabrikam", rosterEntries[1].Organization)
	require.False(testInstance, rosterEntries[1].NugetUpdatesEnabled())
}

func TestLoadRosterValidation(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name: testInvalidVersionLockCaseName,
			content: `
repositories:
  - org: contoso
    name: [widgets]
    features:
      nuget_dependency_updates:
        enabled: true
        version_lock: Patch
`,
		},
		{
			name: testMissingOrganizationCaseName,
			content: `
repositories:
  - name: [widgets]
`,
		},
		{
			name: testMissingRepositoriesCaseName,
			content: `
repositories:
  - org: contoso
`,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			rosterDirectory := testInstance.TempDir()
			writeRosterFile(testInstance, rosterDirectory, testRosterFileNameConstant, testCase.content)

			rosterEntries, loadError := rosters.LoadRoster(rosterDirectory)
			require.Error(testInstance, loadError)
			require.Nil(testInstance, rosterEntries)
		})
	}
}

func TestLoadRosterRejectsEmptyDirectory(testInstance *testing.T) {
	rosterEntries, loadError := rosters.LoadRoster(testInstance.TempDir())
	require.Error(testInstance, loadError)
	require.Nil(testInstance, rosterEntries)
}
