package core

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// placeholderPattern matches {name} where name is one or more word characters.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

var variableName = regexp.MustCompile(`^\w+$`)

// FindVariables returns the unique placeholder names in text, in order of first occurrence.
func FindVariables(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Substitute replaces every {name} with values[name].
// Placeholders without a value are left verbatim. The replacement is a single
// pass over the original text, so inserted values are never expanded again.
func Substitute(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// MissingVariables lists placeholders in text that have no non-empty value.
func MissingVariables(text string, values map[string]string) []string {
	var missing []string
	for _, name := range FindVariables(text) {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// CheckBindings returns ErrUnboundVariables if any placeholder lacks a value.
// A variant is only eligible for dispatch once this passes.
func CheckBindings(text string, values map[string]string) error {
	missing := MissingVariables(text, values)
	if len(missing) == 0 {
		return nil
	}
	return errors.WithHintf(
		errors.Wrapf(ErrUnboundVariables, "missing %s", strings.Join(missing, ", ")),
		"pass values with --var %s=...", missing[0],
	)
}

// ParseAssignments turns "key=value" pairs into a value map.
// Later assignments of the same key win.
func ParseAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Newf("invalid variable assignment %q (want key=value)", p)
		}
		if !variableName.MatchString(key) {
			return nil, errors.Newf("invalid variable name %q", key)
		}
		values[key] = value
	}
	return values, nil
}

// SortedNames returns the keys of values in lexical order.
func SortedNames(values map[string]string) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
