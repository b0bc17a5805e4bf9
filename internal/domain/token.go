package domain

import (
	"encoding/json"
	"strings"
)

// TokenSnapshot is the latest declared market state of one token as received from the feed.
// A new snapshot for an id replaces the previous one entirely.
type TokenSnapshot struct {
	ID         string          `json:"id" validate:"required"`
	Kind       string          `json:"type"`
	Attributes TokenAttributes `json:"attributes"`
}

// TokenAttributes is the sparse attribute record of a snapshot.
// Nil pointers mean the field was absent (never defaulted to zero).
type TokenAttributes struct {
	// Identity
	Name         *string `json:"name,omitempty"`
	Symbol       *string `json:"symbol,omitempty"`
	TokenAddress *string `json:"token_address,omitempty"`
	Address      *string `json:"address,omitempty"`
	ImgURL       *string `json:"img_url,omitempty"`

	// Market
	PriceUSD       *float64 `json:"price_usd,omitempty" validate:"omitempty,gte=0"`
	Volume         *float64 `json:"volume,omitempty" validate:"omitempty,gte=0"`
	FDV            *float64 `json:"fdv,omitempty" validate:"omitempty,gte=0"`
	HoldersCount   *int64   `json:"holders_count,omitempty" validate:"omitempty,gte=0"`
	PooledSOL      *float64 `json:"pooled_sol,omitempty" validate:"omitempty,gte=0"`
	DevHoldingPerc *float64 `json:"dev_holding_perc,omitempty" validate:"omitempty,gte=0,lte=100"`

	CurLiq *Liquidity `json:"cur_liq,omitempty"`

	// Trading activity
	BuysCount    *int64 `json:"buys_count,omitempty" validate:"omitempty,gte=0"`
	SellsCount   *int64 `json:"sells_count,omitempty" validate:"omitempty,gte=0"`
	SnipersCount *int64 `json:"snipers_count,omitempty" validate:"omitempty,gte=0"`

	// Liquidity / audit
	Audit *Audit `json:"audit,omitempty"`

	// Social
	Socials *Socials `json:"socials,omitempty"`

	// Launch venue
	PumpProgress *int64 `json:"pump_progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	PumpMigrated *bool  `json:"pump_migrated,omitempty"`
	FromPump     *bool  `json:"from_pump,omitempty"`
	FromMoonshot *bool  `json:"from_moonshot,omitempty"`
	Ignored      *bool  `json:"ignored,omitempty"`

	// Timestamps (epoch seconds)
	CreatedTimestamp *int64 `json:"created_timestamp,omitempty"`
	OpenTimestamp    *int64 `json:"open_timestamp,omitempty"`
}

// Audit holds the liquidity and authority audit of a token.
type Audit struct {
	FreezeAuthority bool    `json:"freeze_authority"`
	MintAuthority   bool    `json:"mint_authority"`
	LPBurnedPerc    int     `json:"lp_burned_perc" validate:"gte=0,lte=100"`
	TopHoldersPerc  float64 `json:"top_holders_perc" validate:"gte=0,lte=100"`
}

// Liquidity is the current pool liquidity.
type Liquidity struct {
	Quote float64  `json:"quote"`
	USD   *float64 `json:"usd,omitempty"`
}

// Socials holds social presence links. Each field is nil when the platform is absent.
type Socials struct {
	Twitter  *string `json:"twitter,omitempty"`
	Telegram *string `json:"telegram,omitempty"`
	Reddit   *string `json:"reddit,omitempty"`
	Website  *string `json:"website,omitempty"`
	Medium   *string `json:"medium,omitempty"`
}

// UnmarshalJSON accepts any JSON value per platform. Strings are kept as-is,
// null means absent and other values are kept as their raw JSON text.
func (s *Socials) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Socials{}
	for key, value := range raw {
		var target **string
		switch strings.ToLower(key) {
		case "twitter":
			target = &s.Twitter
		case "telegram":
			target = &s.Telegram
		case "reddit":
			target = &s.Reddit
		case "website":
			target = &s.Website
		case "medium":
			target = &s.Medium
		default:
			continue
		}
		*target = decodeLink(value)
	}
	return nil
}

func decodeLink(value json.RawMessage) *string {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(value, &str); err == nil {
		return &str
	}
	return &trimmed
}

// Has reports whether the named platform (twitter, telegram, reddit, website, medium) is present.
func (s *Socials) Has(platform string) bool {
	if s == nil {
		return false
	}
	var link *string
	switch strings.ToLower(platform) {
	case "twitter":
		link = s.Twitter
	case "telegram":
		link = s.Telegram
	case "reddit":
		link = s.Reddit
	case "website":
		link = s.Website
	case "medium":
		link = s.Medium
	}
	return link != nil && *link != ""
}

// Clone returns a deep copy of the snapshot that shares no memory with the receiver.
func (t *TokenSnapshot) Clone() *TokenSnapshot {
	if t == nil {
		return nil
	}
	return &TokenSnapshot{
		ID:         t.ID,
		Kind:       t.Kind,
		Attributes: t.Attributes.Clone(),
	}
}

// Clone returns a deep copy of the attributes.
func (a TokenAttributes) Clone() TokenAttributes {
	out := TokenAttributes{
		Name:             clonePtr(a.Name),
		Symbol:           clonePtr(a.Symbol),
		TokenAddress:     clonePtr(a.TokenAddress),
		Address:          clonePtr(a.Address),
		ImgURL:           clonePtr(a.ImgURL),
		PriceUSD:         clonePtr(a.PriceUSD),
		Volume:           clonePtr(a.Volume),
		FDV:              clonePtr(a.FDV),
		HoldersCount:     clonePtr(a.HoldersCount),
		PooledSOL:        clonePtr(a.PooledSOL),
		DevHoldingPerc:   clonePtr(a.DevHoldingPerc),
		BuysCount:        clonePtr(a.BuysCount),
		SellsCount:       clonePtr(a.SellsCount),
		SnipersCount:     clonePtr(a.SnipersCount),
		Audit:            clonePtr(a.Audit),
		PumpProgress:     clonePtr(a.PumpProgress),
		PumpMigrated:     clonePtr(a.PumpMigrated),
		FromPump:         clonePtr(a.FromPump),
		FromMoonshot:     clonePtr(a.FromMoonshot),
		Ignored:          clonePtr(a.Ignored),
		CreatedTimestamp: clonePtr(a.CreatedTimestamp),
		OpenTimestamp:    clonePtr(a.OpenTimestamp),
	}
	if a.CurLiq != nil {
		out.CurLiq = &Liquidity{Quote: a.CurLiq.Quote, USD: clonePtr(a.CurLiq.USD)}
	}
	if a.Socials != nil {
		out.Socials = &Socials{
			Twitter:  clonePtr(a.Socials.Twitter),
			Telegram: clonePtr(a.Socials.Telegram),
			Reddit:   clonePtr(a.Socials.Reddit),
			Website:  clonePtr(a.Socials.Website),
			Medium:   clonePtr(a.Socials.Medium),
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DisplayName returns the name, falling back to symbol and then id.
func (t *TokenSnapshot) DisplayName() string {
	if t.Attributes.Name != nil && *t.Attributes.Name != "" {
		return *t.Attributes.Name
	}
	if t.Attributes.Symbol != nil && *t.Attributes.Symbol != "" {
		return *t.Attributes.Symbol
	}
	return t.ID
}
