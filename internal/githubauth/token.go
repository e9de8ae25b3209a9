package githubauth

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"

	organizationTokenPrefixConstant = "NUPDATE_GH_TOKEN_"
	organizationSeparatorReplacer   = "-"
	organizationSeparatorReplaced   = "_"
	missingTokenTemplateConstant    = "no GitHub token available for organization %s"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// SessionError indicates an organization-scoped authentication failure.
type SessionError struct {
	Organization string
}

// Error describes the missing credentials.
func (sessionError SessionError) Error() string {
	return fmt.Sprintf(missingTokenTemplateConstant, sessionError.Organization)
}

// Session carries the credentials established for one organization.
type Session struct {
	Organization string
	Token        string
}

// Environment returns the variables collaborators must inherit to act within the session.
func (session Session) Environment() map[string]string {
	return map[string]string{EnvGitHubCLIToken: session.Token}
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// SessionResolver establishes organization-scoped GitHub sessions from environment credentials.
type SessionResolver struct {
	environmentLookup EnvironmentLookup
}

// NewSessionResolver constructs a resolver with an optional environment override.
func NewSessionResolver(environmentLookup EnvironmentLookup) *SessionResolver {
	resolvedLookup := environmentLookup
	if resolvedLookup == nil {
		resolvedLookup = os.LookupEnv
	}
	return &SessionResolver{environmentLookup: resolvedLookup}
}

// ResolveSession returns credentials for the organization, preferring an
// organization-specific token over the shared token variables.
func (resolver *SessionResolver) ResolveSession(organization string) (Session, error) {
	trimmedOrganization := strings.TrimSpace(organization)

	organizationVariable := organizationTokenVariableName(trimmedOrganization)
	if tokenValue, found := resolver.lookup(organizationVariable); found {
		return Session{Organization: trimmedOrganization, Token: tokenValue}, nil
	}

	for _, variableName := range tokenPreference {
		if tokenValue, found := resolver.lookup(variableName); found {
			return Session{Organization: trimmedOrganization, Token: tokenValue}, nil
		}
	}

	return Session{}, SessionError{Organization: trimmedOrganization}
}

func (resolver *SessionResolver) lookup(variableName string) (string, bool) {
	value, exists := resolver.environmentLookup(variableName)
	if !exists {
		return "", false
	}
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return "", false
	}
	return trimmedValue, true
}

func organizationTokenVariableName(organization string) string {
	normalizedOrganization := strings.ToUpper(strings.ReplaceAll(organization, organizationSeparatorReplacer, organizationSeparatorReplaced))
	return organizationTokenPrefixConstant + normalizedOrganization
}
