package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

type SiteType string

const (
	SiteTypeVitrine   SiteType = "vitrine"
	SiteTypeEcommerce SiteType = "ecommerce"
	SiteTypeWebapp    SiteType = "webapp"
)

func SiteTypes() []SiteType {
	return []SiteType{SiteTypeVitrine, SiteTypeEcommerce, SiteTypeWebapp}
}

type DesignType string

const (
	DesignTypeTemplate DesignType = "template"
	DesignTypeCustom   DesignType = "custom"
)

func DesignTypes() []DesignType {
	return []DesignType{DesignTypeTemplate, DesignTypeCustom}
}

type Maintenance string

const (
	MaintenanceNone     Maintenance = "none"
	MaintenanceMonthly  Maintenance = "monthly"
	MaintenanceAnnually Maintenance = "annually"
)

func MaintenanceTiers() []Maintenance {
	return []Maintenance{MaintenanceNone, MaintenanceMonthly, MaintenanceAnnually}
}

type Technology string

const (
	TechnologyReact        Technology = "react"
	TechnologyVue          Technology = "vue"
	TechnologyNextJS       Technology = "nextjs"
	TechnologyWordPress    Technology = "wordpress"
	TechnologyNoPreference Technology = "no-preference"
)

func Technologies() []Technology {
	return []Technology{TechnologyReact, TechnologyVue, TechnologyNextJS, TechnologyWordPress, TechnologyNoPreference}
}

type FeatureID string

// FeatureSet is an unordered set of feature ids. The zero value is an empty set.
// It serialises as a sorted JSON array so equal sets always encode to equal bytes.
type FeatureSet struct {
	ids map[FeatureID]struct{}
}

func NewFeatureSet(ids ...FeatureID) FeatureSet {
	var s FeatureSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *FeatureSet) Add(id FeatureID) {
	if s.ids == nil {
		s.ids = make(map[FeatureID]struct{})
	}
	s.ids[id] = struct{}{}
}

func (s *FeatureSet) Remove(id FeatureID) {
	delete(s.ids, id)
}

// Toggle adds id when absent and removes it when present. It reports whether id is now in the set.
func (s *FeatureSet) Toggle(id FeatureID) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

func (s FeatureSet) Has(id FeatureID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s FeatureSet) Len() int {
	return len(s.ids)
}

// IDs returns the members sorted lexicographically.
func (s FeatureSet) IDs() []FeatureID {
	out := make([]FeatureID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s FeatureSet) Clone() FeatureSet {
	return NewFeatureSet(s.IDs()...)
}

func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *FeatureSet) UnmarshalJSON(data []byte) error {
	var ids []FeatureID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewFeatureSet(ids...)
	return nil
}

type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (c Contact) Normalize() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Company: strings.TrimSpace(c.Company),
	}
}

// Attachment is file metadata only; the content never reaches the quote core.
type Attachment struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// QuoteSelection is the complete state of the quote wizard.
type QuoteSelection struct {
	SiteType           SiteType     `json:"siteType"`
	DesignType         DesignType   `json:"designType"`
	Features           FeatureSet   `json:"features"`
	Maintenance        Maintenance  `json:"maintenance"`
	Technology         Technology   `json:"technology"`
	Contact            Contact      `json:"contact"`
	ProjectDescription string       `json:"projectDescription,omitempty"`
	Attachments        []Attachment `json:"attachments,omitempty"`
}

// NewSelection returns a selection holding the schema defaults.
func NewSelection() QuoteSelection {
	return QuoteSelection{Maintenance: MaintenanceNone}
}

func (q QuoteSelection) Clone() QuoteSelection {
	out := q
	out.Features = q.Features.Clone()
	if q.Attachments != nil {
		out.Attachments = append([]Attachment(nil), q.Attachments...)
	}
	return out
}

// Priced reports whether enough is selected to compute a price.
func (q QuoteSelection) Priced() bool {
	return q.SiteType != "" && q.DesignType != ""
}
