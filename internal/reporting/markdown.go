package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Token Risk Ranking\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Scheme: %s | Tokens: %d\n\n", r.Scheme, r.TokenCount))

	// Tier summary
	sb.WriteString("## Tier Summary\n\n")
	sb.WriteString("| Tier | Tokens |\n")
	sb.WriteString("|------|--------|\n")
	for _, row := range r.TierSummary {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Label, row.Count))
	}
	sb.WriteString("\n")

	// Tokens
	sb.WriteString("## Tokens\n\n")
	if len(r.Tokens) > 0 {
		sb.WriteString("| # | Token | Tier | Base | Bot | Adjusted | Holders | Top% | Volume | B/S | Criteria |\n")
		sb.WriteString("|---|-------|------|------|-----|----------|---------|------|--------|-----|----------|\n")
		for _, t := range r.Tokens {
			criteria := ""
			if t.MeetsCriteria {
				criteria = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.4f | %.4f | %.4f | %d | %.2f | %.2f | %.2f | %s |\n",
				t.Rank, escapeCell(tokenLabel(t)), t.Tier,
				t.Base, t.BotLikelihood, t.Adjusted,
				t.Holders, t.TopHoldersPerc, t.Volume, t.BuySellRatio, criteria))
		}
	} else {
		sb.WriteString("No tokens tracked.\n")
	}
	sb.WriteString("\n")

	// Launch candidates
	sb.WriteString("## Launch Candidates\n\n")
	if len(r.LaunchCandidates) > 0 {
		for _, name := range r.LaunchCandidates {
			sb.WriteString(fmt.Sprintf("- %s\n", escapeCell(name)))
		}
	} else {
		sb.WriteString("No launch candidates.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func tokenLabel(t TokenRow) string {
	switch {
	case t.Name != "" && t.Symbol != "":
		return fmt.Sprintf("%s (%s)", t.Name, t.Symbol)
	case t.Name != "":
		return t.Name
	case t.Symbol != "":
		return t.Symbol
	default:
		return t.ID
	}
}

// escapeCell keeps feed-provided text from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
