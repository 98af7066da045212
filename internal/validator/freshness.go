package validator

import (
	"fmt"
	"strings"
	"time"
)

// WarnAfter is the age past which a record draws a freshness warning,
// whatever its sport.
const WarnAfter = 24 * time.Hour

// DefaultFallbackAge applies to sports without their own rule.
const DefaultFallbackAge = 24 * time.Hour

// FreshnessPolicy maps a sport to the maximum age of its records.
type FreshnessPolicy struct {
	Sports   map[string]time.Duration
	Fallback time.Duration
}

// NewFreshnessPolicy builds a policy from hour values as they appear in
// configuration. Sport keys are matched case-insensitively.
func NewFreshnessPolicy(sports map[string]float64, fallbackHours float64) FreshnessPolicy {
	p := FreshnessPolicy{
		Sports:   make(map[string]time.Duration, len(sports)),
		Fallback: hours(fallbackHours),
	}

	for sport, h := range sports {
		p.Sports[normalizeSport(sport)] = hours(h)
	}

	return p
}

// DefaultFreshnessPolicy returns the stock rules for the four major sports.
func DefaultFreshnessPolicy() FreshnessPolicy {
	return NewFreshnessPolicy(map[string]float64{
		"football":   168,
		"basketball": 168,
		"baseball":   72,
		"hockey":     72,
	}, 24)
}

// MaxAge returns the maximum age for sport, or the fallback.
func (p FreshnessPolicy) MaxAge(sport string) time.Duration {
	if d, ok := p.Sports[normalizeSport(sport)]; ok {
		return d
	}

	if p.Fallback <= 0 {
		return DefaultFallbackAge
	}

	return p.Fallback
}

// Check classifies the age of ts at now. At most one of the returned messages
// is non-empty.
func (p FreshnessPolicy) Check(field string, ts, now time.Time, sport string) (errMsg, warnMsg string) {
	age := now.Sub(ts)
	maxAge := p.MaxAge(sport)
	label := sportLabel(sport)

	switch {
	case age > maxAge:
		return fmt.Sprintf("field '%s' is %.1fh old, exceeds %s maximum age for %s",
			field, age.Hours(), maxAge, label), ""
	case age > WarnAfter:
		return "", fmt.Sprintf("field '%s' is %.1fh old, older than %s for %s",
			field, age.Hours(), WarnAfter, label)
	default:
		return "", ""
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func normalizeSport(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sportLabel(sport string) string {
	if s := normalizeSport(sport); s != "" {
		return s
	}

	return "unknown sport"
}
