package models

// DealerID is the stable identifier of an upstream dealer.
type DealerID string

// Known dealers.
const (
	DealerAinslie   DealerID = "ainslie"
	DealerABC       DealerID = "abc"
	DealerPerthMint DealerID = "perth_mint"
)

// DealerInfo describes the dealer an adapter scrapes.
type DealerInfo struct {
	ID   DealerID `json:"id"`
	Name string   `json:"name"`
	URL  string   `json:"url"`
}

// Candidate is a raw listing extracted by a source adapter before normalization.
// Text fields are kept as scraped; the normalizer decides what they mean.
type Candidate struct {
	Name          string       `json:"name"`
	MetalHint     string       `json:"metal_hint,omitempty"`
	CategoryHint  string       `json:"category_hint,omitempty"`
	PriceText     string       `json:"price_text"`
	SellPriceText string       `json:"sell_price_text,omitempty"`
	URL           string       `json:"url"`
	InStock       bool         `json:"in_stock"`
	SKU           string       `json:"sku,omitempty"`
	VolumeTiers   []VolumeTier `json:"volume_tiers,omitempty"`
}

// SourceResult is the output of one adapter run.
// Err is set when the adapter failed outright; Candidates is then empty.
type SourceResult struct {
	Dealer     DealerInfo  `json:"dealer"`
	Candidates []Candidate `json:"candidates"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
}

// Failed reports whether the adapter produced nothing because of a total failure.
func (r SourceResult) Failed() bool {
	return r.Err != nil || r.Error != ""
}
