package domain

// Breakdown is the itemised price of a selection, in whole euros.
type Breakdown struct {
	Base       int            `json:"base"`
	Surcharges int            `json:"surcharges"`
	Features   map[string]int `json:"featureBreakdown"`
	Recurring  int            `json:"recurring"`
	Total      int            `json:"total"`
	// Excluded lists selected features whose constraint is unmet; the UI should drop them.
	Excluded []FeatureID `json:"excluded,omitempty"`
	// Forced lists features bundled for free with the current site type.
	Forced []FeatureID `json:"forced,omitempty"`
}

// ItemizedSum is base + surcharges + every feature line.
func (b *Breakdown) ItemizedSum() int {
	sum := b.Base + b.Surcharges
	for _, price := range b.Features {
		sum += price
	}
	return sum
}

func (b *Breakdown) Clone() *Breakdown {
	if b == nil {
		return nil
	}
	out := *b
	out.Features = make(map[string]int, len(b.Features))
	for label, price := range b.Features {
		out.Features[label] = price
	}
	out.Excluded = append([]FeatureID(nil), b.Excluded...)
	out.Forced = append([]FeatureID(nil), b.Forced...)
	return &out
}

// Summary is the serialisable result of a valid submit.
type Summary struct {
	DevisNumber string         `json:"devisNumber,omitempty"`
	Selection   QuoteSelection `json:"selection"`
	Breakdown   *Breakdown     `json:"breakdown"`
	Total       int            `json:"total"`
	Recurring   int            `json:"recurring"`
}
