// Package rosters loads and validates the repository roster: the ordered list
// of organization and repository configuration entries that drive an update
// run. Entries are read from YAML files in a configuration directory, feature
// settings are validated at load time, and defaults are applied by an explicit
// defaulting step rather than at each access.
package rosters
