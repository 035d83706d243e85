// Package types provides type definitions for structured data used throughout the footwear triage system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
)

// Suggestion is the recommended downstream handling of an item.
type Suggestion string

// Suggestion values
const (
	SuggestionResale  Suggestion = "resale"
	SuggestionDonate  Suggestion = "donate"
	SuggestionRecycle Suggestion = "recycle"
)

// Valid reports whether s is one of the three dispositions.
func (s Suggestion) Valid() bool {
	switch s {
	case SuggestionResale, SuggestionDonate, SuggestionRecycle:
		return true
	}
	return false
}

// NeedsRouting reports whether the item leaves the resale channel.
func (s Suggestion) NeedsRouting() bool {
	return s == SuggestionDonate || s == SuggestionRecycle
}

// Price tier keys used on the wire
const (
	Tier90 = "90"
	Tier70 = "70"
	Tier50 = "50"
)

// PriceRange is an inclusive [Low, High] price band.
type PriceRange struct {
	Low  int
	High int
}

// MarshalJSON encodes the range as a two-element array.
func (p PriceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Low, p.High})
}

// UnmarshalJSON decodes a two-element integer array.
func (p *PriceRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("price range must have 2 elements, got %d", len(pair))
	}
	p.Low, p.High = pair[0], pair[1]
	return nil
}

// PriceTable maps the three confidence tiers to price ranges.
type PriceTable struct {
	Confidence90 PriceRange
	Confidence70 PriceRange
	Confidence50 PriceRange
}

// MarshalJSON encodes the table keyed by tier ("90", "70", "50").
func (t PriceTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]PriceRange{
		Tier90: t.Confidence90,
		Tier70: t.Confidence70,
		Tier50: t.Confidence50,
	})
}

// UnmarshalJSON decodes a tier-keyed object. All three tiers are required
// and no other keys are accepted.
func (t *PriceTable) UnmarshalJSON(data []byte) error {
	var raw map[string]PriceRange
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("price table must have exactly 3 tiers, got %d", len(raw))
	}
	for _, tier := range []struct {
		key string
		dst *PriceRange
	}{{Tier90, &t.Confidence90}, {Tier70, &t.Confidence70}, {Tier50, &t.Confidence50}} {
		r, ok := raw[tier.key]
		if !ok {
			return fmt.Errorf("price table missing tier %q", tier.key)
		}
		*tier.dst = r
	}
	return nil
}

// Assessment is the validated structured output of the generative model.
type Assessment struct {
	Summary     string     `json:"summary"`
	Defects     []string   `json:"defects"`
	Suggestion  Suggestion `json:"suggestion"`
	TitleZH     string     `json:"title_zh"`
	TitleEN     string     `json:"title_en"`
	Description string     `json:"desc"`
	Prices      PriceTable `json:"prices"`
}

// DescriptionSoftLimit is the advisory maximum description length in characters.
const DescriptionSoftLimit = 150

// MarshalJSON writes a nil defect list as [] so the output satisfies the
// assessment contract.
func (a Assessment) MarshalJSON() ([]byte, error) {
	type plain Assessment
	if a.Defects == nil {
		a.Defects = []string{}
	}
	return json.Marshal(plain(a))
}
