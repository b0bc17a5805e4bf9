package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

var csvHeader = []string{
	"rank", "id", "name", "symbol", "tier", "base", "bot_likelihood", "adjusted",
	"price_usd", "market_cap", "holders", "top_holders_perc", "volume",
	"volume_mcap_ratio", "buy_sell_ratio", "age_hours", "address",
	"meets_criteria", "launch_candidate",
}

// RenderCSV renders token rows as CSV string. Absent optional values are empty cells.
func RenderCSV(rows []TokenRow) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Header
	w.Write(csvHeader)

	// Rows
	for _, r := range rows {
		w.Write([]string{
			strconv.Itoa(r.Rank),
			r.ID,
			r.Name,
			r.Symbol,
			r.Tier,
			formatFloat(r.Base),
			formatFloat(r.BotLikelihood),
			formatFloat(r.Adjusted),
			formatOptional(r.PriceUSD),
			formatFloat(r.MarketCap),
			strconv.FormatInt(r.Holders, 10),
			formatFloat(r.TopHoldersPerc),
			formatFloat(r.Volume),
			formatFloat(r.VolumeMcapRatio),
			formatFloat(r.BuySellRatio),
			formatOptional(r.AgeHours),
			r.Address,
			strconv.FormatBool(r.MeetsCriteria),
			strconv.FormatBool(r.LaunchCandidate),
		})
	}

	w.Flush()
	return buf.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
