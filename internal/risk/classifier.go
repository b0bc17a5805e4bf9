package risk

import (
	"fmt"
	"strings"

	"token-risk-monitor/internal/domain"
)

// Scheme selects how an adjusted concentration maps to a risk tier.
// Call sites choose a scheme explicitly; the two are never merged.
type Scheme int

const (
	// SchemeFixed uses strict thresholds 0.15 / 0.25 / 0.40 and never yields Unknown.
	SchemeFixed Scheme = iota
	// SchemeProportional uses inclusive thresholds 0.25 / 0.50 / 0.75 / 1.00
	// and yields Unknown above 1.0.
	SchemeProportional
)

// Fixed scheme thresholds (exclusive upper bounds).
const (
	fixedLowMax      = 0.15
	fixedModerateMax = 0.25
	fixedHighMax     = 0.40
)

// Proportional scheme thresholds (inclusive upper bounds).
const (
	proportionalLowMax      = 0.25
	proportionalModerateMax = 0.50
	proportionalHighMax     = 0.75
	proportionalVeryHighMax = 1.00
)

// String returns the configuration name of the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeFixed:
		return "fixed"
	case SchemeProportional:
		return "proportional"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// ParseScheme parses "fixed" or "proportional".
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return SchemeFixed, nil
	case "proportional":
		return SchemeProportional, nil
	}
	return SchemeFixed, fmt.Errorf("unknown risk scheme %q", s)
}

// Classify maps an adjusted concentration to a tier. Pure and total.
func (s Scheme) Classify(score float64) domain.RiskTier {
	if s == SchemeProportional {
		return classifyProportional(score)
	}
	return classifyFixed(score)
}

func classifyFixed(score float64) domain.RiskTier {
	switch {
	case score < fixedLowMax:
		return domain.RiskLow
	case score < fixedModerateMax:
		return domain.RiskModerate
	case score < fixedHighMax:
		return domain.RiskHigh
	default:
		return domain.RiskVeryHigh
	}
}

func classifyProportional(score float64) domain.RiskTier {
	switch {
	case score <= proportionalLowMax:
		return domain.RiskLow
	case score <= proportionalModerateMax:
		return domain.RiskModerate
	case score <= proportionalHighMax:
		return domain.RiskHigh
	case score <= proportionalVeryHighMax:
		return domain.RiskVeryHigh
	default:
		return domain.RiskUnknown
	}
}
