package validator

import (
	"maps"
	"slices"
	"strings"

	"outlierx/internal/models"
)

// Registry maps predicate names used in configuration to implementations.
type Registry map[string]models.Predicate

// DefaultPredicates returns the predicates available to every validator.
func DefaultPredicates() Registry {
	return Registry{
		"decimal_odds":   decimalOdds,
		"non_negative":   nonNegative,
		"distinct_teams": distinctTeams,
	}
}

// Names returns the registered predicate names, sorted.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

func decimalOdds(value any) bool {
	if value == nil {
		return true
	}

	f, ok := toFloat(value)

	return ok && f >= 1.0
}

func nonNegative(value any) bool {
	if value == nil {
		return true
	}

	f, ok := toFloat(value)

	return ok && f >= 0
}

// distinctTeams accepts "Home vs Away" (or "@", "-" separators) naming two
// different teams.
func distinctTeams(value any) bool {
	s, ok := value.(string)
	if !ok {
		return value == nil
	}

	for _, sep := range []string{" vs. ", " vs ", " v ", " @ ", " - "} {
		home, away, found := strings.Cut(strings.ToLower(s), sep)
		if !found {
			continue
		}

		home, away = strings.TrimSpace(home), strings.TrimSpace(away)

		return home != "" && away != "" && home != away
	}

	return false
}
