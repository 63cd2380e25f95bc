package prefill

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/validation"
)

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return values
}

func TestParse_InvalidMaintenanceFallsBackToNone(t *testing.T) {
	schema := validation.NewSchema(nil)

	sel := Parse(query(t, "siteType=ecommerce&maintenance=bogus"), schema).Selection()

	assert.Equal(t, domain.SiteTypeEcommerce, sel.SiteType)
	assert.Equal(t, domain.MaintenanceNone, sel.Maintenance)
}

func TestParse_AllKeys(t *testing.T) {
	schema := validation.NewSchema(nil)
	values := url.Values{
		"siteType":    {"webapp"},
		"designType":  {"custom"},
		"features":    {"blog,seo,chatbot"},
		"maintenance": {"annually"},
		"technology":  {"vue"},
	}

	p := Parse(values, schema)

	require.NotNil(t, p.SiteType)
	require.NotNil(t, p.DesignType)
	require.NotNil(t, p.Maintenance)
	require.NotNil(t, p.Technology)
	assert.Equal(t, domain.SiteTypeWebapp, *p.SiteType)
	assert.Equal(t, domain.DesignTypeCustom, *p.DesignType)
	assert.Equal(t, domain.MaintenanceAnnually, *p.Maintenance)
	assert.Equal(t, domain.TechnologyVue, *p.Technology)
	assert.Equal(t, []domain.FeatureID{"blog", "seo"}, p.Features)
}

func TestParse_InvalidValuesIgnored(t *testing.T) {
	schema := validation.NewSchema(nil)

	p := Parse(query(t, "siteType=intranet&designType=&technology=cobol&features=,,&pageCount=10%2B"), schema)

	assert.Nil(t, p.SiteType)
	assert.Nil(t, p.DesignType)
	assert.Nil(t, p.Technology)
	assert.Nil(t, p.Maintenance)
	assert.Empty(t, p.Features)

	sel := p.Selection()
	assert.Equal(t, domain.NewSelection(), sel)
}

func TestParse_RepeatedFeatureKeys(t *testing.T) {
	schema := validation.NewSchema(nil)

	p := Parse(query(t, "features=blog&features=gallery,blog"), schema)

	assert.Equal(t, []domain.FeatureID{"blog", "gallery"}, p.Features)
}

func TestParse_MalformedPairKeepsOtherKeys(t *testing.T) {
	schema := validation.NewSchema(nil)

	// url.ParseQuery (and r.URL.Query) keep every pair that decodes
	values, err := url.ParseQuery("siteType=vitrine&designType=%zz&technology=vue")
	require.Error(t, err)

	p := Parse(values, schema)
	require.NotNil(t, p.SiteType)
	require.NotNil(t, p.Technology)
	assert.Equal(t, domain.SiteTypeVitrine, *p.SiteType)
	assert.Equal(t, domain.TechnologyVue, *p.Technology)
	assert.Nil(t, p.DesignType)
}

func TestApply_KeepsUntouchedFields(t *testing.T) {
	schema := validation.NewSchema(nil)
	base := domain.NewSelection()
	base.Contact = domain.Contact{Name: "Camille"}
	base.DesignType = domain.DesignTypeTemplate

	sel := Parse(query(t, "siteType=vitrine"), schema).Apply(base)

	assert.Equal(t, domain.SiteTypeVitrine, sel.SiteType)
	assert.Equal(t, domain.DesignTypeTemplate, sel.DesignType)
	assert.Equal(t, "Camille", sel.Contact.Name)
}
