package pricing

import (
	"errors"
	"fmt"

	"github.com/fjod/go_quote/internal/domain"
)

var ErrUnknownKey = errors.New("unknown pricing key")

type Category string

const (
	CategorySiteType    Category = "siteType"
	CategoryDesignType  Category = "designType"
	CategoryFeature     Category = "feature"
	CategoryMaintenance Category = "maintenance"
)

// Option is one priced entry of the table.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Price int    `json:"price"`
}

// FeatureOption is an add-on with an optional site type constraint.
type FeatureOption struct {
	ID    domain.FeatureID `json:"id"`
	Label string           `json:"label"`
	Price int              `json:"price"`
	// RequiresSiteType, when set, is the only site type the feature can be priced for.
	RequiresSiteType domain.SiteType `json:"requiresSiteType,omitempty"`
	// ForcedFor, when set, is the site type that bundles the feature for free.
	ForcedFor domain.SiteType `json:"forcedFor,omitempty"`
}

// Allowed reports whether the feature constraint is met for site.
func (f FeatureOption) Allowed(site domain.SiteType) bool {
	return f.RequiresSiteType == "" || f.RequiresSiteType == site
}

func (f FeatureOption) IsForced(site domain.SiteType) bool {
	return f.ForcedFor != "" && f.ForcedFor == site
}

const (
	FeatureBlog              domain.FeatureID = "blog"
	FeatureGallery           domain.FeatureID = "gallery"
	FeatureNewsletter        domain.FeatureID = "newsletter"
	FeatureMultilingual      domain.FeatureID = "multilingual"
	FeatureAnalytics         domain.FeatureID = "analytics"
	FeatureSEO               domain.FeatureID = "seo"
	FeatureBooking           domain.FeatureID = "booking"
	FeatureProductVariations domain.FeatureID = "product-variations"
	FeatureUserAccounts      domain.FeatureID = "user-accounts"
)

// Table is the immutable price list. Every accessor returns copies.
type Table struct {
	siteTypes   []Option
	designTypes []Option
	features    []FeatureOption
	maintenance []Option

	prices map[Category]map[string]int
	byID   map[domain.FeatureID]int
}

var defaultTable = NewTable(
	[]Option{
		{Key: string(domain.SiteTypeVitrine), Label: "Site vitrine", Price: 350},
		{Key: string(domain.SiteTypeEcommerce), Label: "Site e-commerce", Price: 1200},
		{Key: string(domain.SiteTypeWebapp), Label: "Application web", Price: 2500},
	},
	[]Option{
		{Key: string(domain.DesignTypeTemplate), Label: "Design basé sur un modèle", Price: 200},
		{Key: string(domain.DesignTypeCustom), Label: "Design sur-mesure", Price: 800},
	},
	[]FeatureOption{
		{ID: FeatureBlog, Label: "Blog / Actualités", Price: 300},
		{ID: FeatureGallery, Label: "Galerie d'images / Portfolio", Price: 150},
		{ID: FeatureNewsletter, Label: "Inscription à la newsletter", Price: 100},
		{ID: FeatureMultilingual, Label: "Site multilingue", Price: 400},
		{ID: FeatureAnalytics, Label: "Intégration d'analytics", Price: 80},
		{ID: FeatureSEO, Label: "Optimisation SEO avancée", Price: 250},
		{ID: FeatureBooking, Label: "Système de réservation", Price: 450},
		{ID: FeatureProductVariations, Label: "Variations de produits", Price: 200, RequiresSiteType: domain.SiteTypeEcommerce},
		{ID: FeatureUserAccounts, Label: "Espace utilisateur / Comptes", Price: 350, ForcedFor: domain.SiteTypeWebapp},
	},
	[]Option{
		{Key: string(domain.MaintenanceNone), Label: "Sans maintenance", Price: 0},
		{Key: string(domain.MaintenanceMonthly), Label: "Maintenance mensuelle", Price: 10},
		{Key: string(domain.MaintenanceAnnually), Label: "Maintenance annuelle", Price: 100},
	},
)

// Default returns the process wide price list.
func Default() *Table {
	return defaultTable
}

// NewTable builds a table from its four categories. Keys must be unique per category.
func NewTable(siteTypes, designTypes []Option, features []FeatureOption, maintenance []Option) *Table {
	t := &Table{
		siteTypes:   append([]Option(nil), siteTypes...),
		designTypes: append([]Option(nil), designTypes...),
		features:    append([]FeatureOption(nil), features...),
		maintenance: append([]Option(nil), maintenance...),
		prices:      make(map[Category]map[string]int, 4),
		byID:        make(map[domain.FeatureID]int, len(features)),
	}
	t.prices[CategorySiteType] = index(t.siteTypes)
	t.prices[CategoryDesignType] = index(t.designTypes)
	t.prices[CategoryMaintenance] = index(t.maintenance)

	featurePrices := make(map[string]int, len(t.features))
	for i, f := range t.features {
		featurePrices[string(f.ID)] = f.Price
		t.byID[f.ID] = i
	}
	t.prices[CategoryFeature] = featurePrices
	return t
}

func index(options []Option) map[string]int {
	m := make(map[string]int, len(options))
	for _, o := range options {
		m[o.Key] = o.Price
	}
	return m
}

// PriceOf returns the listed price of key in category.
func (t *Table) PriceOf(category Category, key string) (int, error) {
	prices, ok := t.prices[category]
	if !ok {
		return 0, fmt.Errorf("%w: category %q", ErrUnknownKey, category)
	}
	price, ok := prices[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownKey, category, key)
	}
	return price, nil
}

func (t *Table) Categories() []Category {
	return []Category{CategorySiteType, CategoryDesignType, CategoryFeature, CategoryMaintenance}
}

// Options lists a category in table order. Features are flattened to Option.
func (t *Table) Options(category Category) []Option {
	switch category {
	case CategorySiteType:
		return append([]Option(nil), t.siteTypes...)
	case CategoryDesignType:
		return append([]Option(nil), t.designTypes...)
	case CategoryMaintenance:
		return append([]Option(nil), t.maintenance...)
	case CategoryFeature:
		out := make([]Option, 0, len(t.features))
		for _, f := range t.features {
			out = append(out, Option{Key: string(f.ID), Label: f.Label, Price: f.Price})
		}
		return out
	}
	return nil
}

func (t *Table) Features() []FeatureOption {
	return append([]FeatureOption(nil), t.features...)
}

func (t *Table) Feature(id domain.FeatureID) (FeatureOption, bool) {
	i, ok := t.byID[id]
	if !ok {
		return FeatureOption{}, false
	}
	return t.features[i], true
}

func (t *Table) HasFeature(id domain.FeatureID) bool {
	_, ok := t.byID[id]
	return ok
}
