package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_quote/internal/domain"
)

func selection(site domain.SiteType, design domain.DesignType, m domain.Maintenance, features ...domain.FeatureID) domain.QuoteSelection {
	sel := domain.NewSelection()
	sel.SiteType = site
	sel.DesignType = design
	sel.Maintenance = m
	sel.Features = domain.NewFeatureSet(features...)
	return sel
}

func TestComputeTotal_VitrineWithAnalytics(t *testing.T) {
	calc := NewCalculator(nil)

	b := calc.ComputeTotal(selection(domain.SiteTypeVitrine, domain.DesignTypeTemplate, domain.MaintenanceNone, FeatureAnalytics))
	require.NotNil(t, b)

	assert.Equal(t, 350, b.Base)
	assert.Equal(t, 200, b.Surcharges)
	assert.Equal(t, map[string]int{"Intégration d'analytics": 80}, b.Features)
	assert.Equal(t, 0, b.Recurring)
	assert.Equal(t, 630, b.Total)
}

func TestComputeTotal_WebappForcedAccounts(t *testing.T) {
	calc := NewCalculator(nil)

	b := calc.ComputeTotal(selection(domain.SiteTypeWebapp, domain.DesignTypeCustom, domain.MaintenanceMonthly, FeatureUserAccounts, FeatureBlog))
	require.NotNil(t, b)

	assert.Equal(t, 3600, b.Total)
	assert.Equal(t, 10, b.Recurring)
	assert.Equal(t, 0, b.Features["Espace utilisateur / Comptes"])
	assert.Equal(t, []domain.FeatureID{FeatureUserAccounts}, b.Forced)
}

func TestComputeTotal_WebappForcedWithoutSelection(t *testing.T) {
	calc := NewCalculator(nil)

	b := calc.ComputeTotal(selection(domain.SiteTypeWebapp, domain.DesignTypeTemplate, domain.MaintenanceNone))
	require.NotNil(t, b)

	price, ok := b.Features["Espace utilisateur / Comptes"]
	assert.True(t, ok)
	assert.Equal(t, 0, price)
	assert.Equal(t, 2700, b.Total)
}

func TestComputeTotal_UserAccountsPricedOutsideWebapp(t *testing.T) {
	calc := NewCalculator(nil)

	b := calc.ComputeTotal(selection(domain.SiteTypeVitrine, domain.DesignTypeTemplate, domain.MaintenanceNone, FeatureUserAccounts))
	require.NotNil(t, b)

	assert.Equal(t, 350, b.Features["Espace utilisateur / Comptes"])
	assert.Empty(t, b.Forced)
	assert.Equal(t, 900, b.Total)
}

func TestComputeTotal_ConstrainedFeatureExcluded(t *testing.T) {
	calc := NewCalculator(nil)

	b := calc.ComputeTotal(selection(domain.SiteTypeVitrine, domain.DesignTypeTemplate, domain.MaintenanceNone, FeatureProductVariations))
	require.NotNil(t, b)

	assert.NotContains(t, b.Features, "Variations de produits")
	assert.Equal(t, []domain.FeatureID{FeatureProductVariations}, b.Excluded)
	assert.Equal(t, 550, b.Total)
}

func TestComputeTotal_SwitchingSiteTypeDropsConstrainedFeature(t *testing.T) {
	calc := NewCalculator(nil)
	sel := selection(domain.SiteTypeEcommerce, domain.DesignTypeTemplate, domain.MaintenanceNone, FeatureProductVariations)

	before := calc.ComputeTotal(sel)
	require.NotNil(t, before)
	assert.Equal(t, 1600, before.Total)

	sel.SiteType = domain.SiteTypeVitrine
	after := calc.ComputeTotal(sel)
	require.NotNil(t, after)
	assert.Equal(t, 550, after.Total)
	assert.Contains(t, after.Excluded, FeatureProductVariations)
}

func TestComputeTotal_NilUntilSiteAndDesign(t *testing.T) {
	calc := NewCalculator(nil)

	assert.Nil(t, calc.ComputeTotal(domain.NewSelection()))
	assert.Nil(t, calc.ComputeTotal(selection(domain.SiteTypeVitrine, "", domain.MaintenanceNone)))
	assert.Nil(t, calc.ComputeTotal(selection("", domain.DesignTypeCustom, domain.MaintenanceNone)))
}

func TestComputeTotal_SumInvariant(t *testing.T) {
	calc := NewCalculator(nil)
	table := Default()

	for _, site := range domain.SiteTypes() {
		for _, design := range domain.DesignTypes() {
			for _, m := range domain.MaintenanceTiers() {
				for _, f := range table.Features() {
					b := calc.ComputeTotal(selection(site, design, m, f.ID, FeatureBlog))
					require.NotNil(t, b)
					assert.GreaterOrEqual(t, b.Total, 0)
					assert.Equal(t, b.ItemizedSum(), b.Total)
				}
			}
		}
	}
}

func TestComputeTotal_Idempotent(t *testing.T) {
	calc := NewCalculator(nil)
	sel := selection(domain.SiteTypeEcommerce, domain.DesignTypeCustom, domain.MaintenanceAnnually,
		FeatureBlog, FeatureSEO, FeatureProductVariations, FeatureNewsletter)

	first, err := json.Marshal(calc.ComputeTotal(sel))
	require.NoError(t, err)
	second, err := json.Marshal(calc.ComputeTotal(sel))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeTotal_UnknownKeysContributeZero(t *testing.T) {
	calc := NewCalculator(nil)
	sel := selection("intranet", domain.DesignTypeTemplate, "weekly", "chatbot", FeatureBlog)

	b := calc.ComputeTotal(sel)
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Base)
	assert.Equal(t, 0, b.Recurring)
	assert.Equal(t, 500, b.Total)
	assert.Len(t, b.Features, 1)
}

func TestComputeTotal_StrictPanicsOnUnknownKey(t *testing.T) {
	calc := NewCalculator(nil, WithStrict(true))

	assert.Panics(t, func() {
		calc.ComputeTotal(selection("intranet", domain.DesignTypeTemplate, domain.MaintenanceNone))
	})
}

func TestComputeTotal_EmptyMaintenanceIsNone(t *testing.T) {
	calc := NewCalculator(nil, WithStrict(true))

	b := calc.ComputeTotal(selection(domain.SiteTypeVitrine, domain.DesignTypeTemplate, ""))
	require.NotNil(t, b)
	assert.Equal(t, 0, b.Recurring)
}
