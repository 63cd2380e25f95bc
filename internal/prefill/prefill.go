// Package prefill derives initial quote wizard values from URL query parameters.
//
// Only the keys below are read. A value that does not parse is ignored and the
// field keeps its default; Parse never fails.
package prefill

import (
	"net/url"
	"strings"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/validation"
)

const (
	KeySiteType    = "siteType"
	KeyDesignType  = "designType"
	KeyFeatures    = "features"
	KeyMaintenance = "maintenance"
	KeyTechnology  = "technology"
)

// Params is the recognised subset of a query string. Nil fields were absent or invalid.
type Params struct {
	SiteType    *domain.SiteType
	DesignType  *domain.DesignType
	Features    []domain.FeatureID
	Maintenance *domain.Maintenance
	Technology  *domain.Technology
}

func Parse(values url.Values, schema *validation.Schema) Params {
	var p Params

	if v := values.Get(KeySiteType); v != "" {
		if s, ok := validation.ParseSiteType(v); ok {
			p.SiteType = &s
		}
	}
	if v := values.Get(KeyDesignType); v != "" {
		if d, ok := validation.ParseDesignType(v); ok {
			p.DesignType = &d
		}
	}
	if v := values.Get(KeyTechnology); v != "" {
		if t, ok := validation.ParseTechnology(v); ok {
			p.Technology = &t
		}
	}
	if v := values.Get(KeyMaintenance); v != "" {
		m := validation.ParseMaintenance(v)
		p.Maintenance = &m
	}
	if raw, ok := values[KeyFeatures]; ok {
		var ids []string
		for _, joined := range raw {
			ids = append(ids, strings.Split(joined, ",")...)
		}
		p.Features = schema.SanitizeFeatures(ids).IDs()
	}
	return p
}

// Apply overlays the recognised values on sel.
func (p Params) Apply(sel domain.QuoteSelection) domain.QuoteSelection {
	if p.SiteType != nil {
		sel.SiteType = *p.SiteType
	}
	if p.DesignType != nil {
		sel.DesignType = *p.DesignType
	}
	if p.Maintenance != nil {
		sel.Maintenance = *p.Maintenance
	}
	if p.Technology != nil {
		sel.Technology = *p.Technology
	}
	if len(p.Features) > 0 {
		sel.Features = domain.NewFeatureSet(p.Features...)
	}
	return sel
}

// Selection returns the schema defaults with the query overlaid.
func (p Params) Selection() domain.QuoteSelection {
	return p.Apply(domain.NewSelection())
}
