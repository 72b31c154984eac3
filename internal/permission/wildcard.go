package permission

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchBashPermission finds the matching permission action for a command.
func MatchBashPermission(cmd BashCommand, permissions map[string]PermissionAction) PermissionAction {
	// Build command string variations for matching
	cmdWithSubcommand := cmd.Name
	if cmd.Subcommand != "" {
		cmdWithSubcommand = cmd.Name + " " + cmd.Subcommand
	}

	// Try most specific match first: "git commit *"
	if cmd.Subcommand != "" {
		if action, ok := permissions[cmdWithSubcommand+" *"]; ok {
			return action
		}
	}

	// Try command + wildcard: "git *"
	if action, ok := permissions[cmd.Name+" *"]; ok {
		return action
	}

	// Try command alone: "git"
	if action, ok := permissions[cmd.Name]; ok {
		return action
	}

	// Try global wildcard: "*"
	if action, ok := permissions["*"]; ok {
		return action
	}

	// Default to ask
	return ActionAsk
}

// MatchPattern checks if a command matches a wildcard pattern.
// Pattern format: "command subcommand *" or "command *" or "*". Patterns
// and commands are joined into doublestar paths ("command/subcommand/arg")
// so a trailing "*" becomes "**" and matches any number of remaining
// segments, while an inner "*" matches exactly one.
func MatchPattern(pattern string, cmd BashCommand) bool {
	if pattern == "*" {
		return true
	}

	ok, err := doublestar.Match(patternToGlob(pattern), commandToGlobPath(cmd))
	return err == nil && ok
}

// commandToGlobPath renders a parsed command as a "/"-joined path:
// "name/arg1/arg2" — cmd.Args already includes the subcommand as its
// first entry, so it is not appended separately.
func commandToGlobPath(cmd BashCommand) string {
	parts := append([]string{cmd.Name}, cmd.Args...)
	return strings.Join(parts, "/")
}

// patternToGlob converts a space-separated permission pattern into a
// doublestar glob: a trailing "*" token becomes "**" so it absorbs any
// remaining segments, matching the original "rest of the command" intent.
func patternToGlob(pattern string) string {
	fields := strings.Fields(pattern)
	if len(fields) > 0 && fields[len(fields)-1] == "*" {
		fields[len(fields)-1] = "**"
	}
	return strings.Join(fields, "/")
}

// BuildPattern creates a permission pattern for a command.
// For "git commit -m msg", returns "git commit *"
// For "ls -la", returns "ls *"
func BuildPattern(cmd BashCommand) string {
	if cmd.Subcommand != "" {
		return cmd.Name + " " + cmd.Subcommand + " *"
	}
	return cmd.Name + " *"
}

// BuildPatterns creates permission patterns for multiple commands.
func BuildPatterns(commands []BashCommand) []string {
	seen := make(map[string]bool)
	var patterns []string

	for _, cmd := range commands {
		// Skip "cd" since we handle directory changes separately
		if cmd.Name == "cd" {
			continue
		}

		pattern := BuildPattern(cmd)
		if !seen[pattern] {
			seen[pattern] = true
			patterns = append(patterns, pattern)
		}
	}

	return patterns
}
