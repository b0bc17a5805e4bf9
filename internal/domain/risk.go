package domain

import (
	"fmt"
	"strings"
)

// RiskTier is a discrete concentration risk classification.
// Tiers are totally ordered: Low < Moderate < High < VeryHigh < Unknown.
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskModerate
	RiskHigh
	RiskVeryHigh
	RiskUnknown
)

// AllRiskTiers lists every tier in sort order.
var AllRiskTiers = []RiskTier{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh, RiskUnknown}

// String returns the short identifier of the tier.
func (t RiskTier) String() string {
	switch t {
	case RiskLow:
		return "Low"
	case RiskModerate:
		return "Moderate"
	case RiskHigh:
		return "High"
	case RiskVeryHigh:
		return "VeryHigh"
	default:
		return "Unknown"
	}
}

// Label returns the human-readable text shown to users.
func (t RiskTier) Label() string {
	switch t {
	case RiskLow:
		return "Low Risk"
	case RiskModerate:
		return "Moderate Risk"
	case RiskHigh:
		return "High Risk"
	case RiskVeryHigh:
		return "Very High Risk"
	default:
		return "Unknown Risk"
	}
}

// IsValid checks if the tier is one of the defined values.
func (t RiskTier) IsValid() bool {
	return t >= RiskLow && t <= RiskUnknown
}

// ParseRiskTier parses a tier from its identifier or label, case-insensitively.
// Accepts "VeryHigh", "very_high", "very-high", "Very High Risk" and similar spellings.
func ParseRiskTier(s string) (RiskTier, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, " risk")
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)

	switch norm {
	case "low":
		return RiskLow, nil
	case "moderate":
		return RiskModerate, nil
	case "high":
		return RiskHigh, nil
	case "veryhigh":
		return RiskVeryHigh, nil
	case "unknown":
		return RiskUnknown, nil
	}
	return RiskUnknown, fmt.Errorf("unknown risk tier %q", s)
}

// MarshalText encodes the tier as its identifier.
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier identifier or label.
func (t *RiskTier) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
