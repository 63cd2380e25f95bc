package validation

import (
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/pricing"
)

type Kind string

const (
	KindInvalidEnum   Kind = "InvalidEnum"
	KindRequired      Kind = "Required"
	KindInvalidFormat Kind = "InvalidFormat"
)

const (
	FieldSiteType     = "siteType"
	FieldDesignType   = "designType"
	FieldTechnology   = "technology"
	FieldContactName  = "contact.name"
	FieldContactEmail = "contact.email"
	FieldAttachments  = "attachments"
)

const (
	MaxAttachments    = 3
	MaxAttachmentSize = 10 << 20 // 10 MiB
)

var allowedMimeTypes = []string{
	"application/pdf",
	"image/png",
	"image/jpeg",
	"image/webp",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type FieldError struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors maps a field path to its first failing rule.
type Errors map[string]FieldError

func (e Errors) Empty() bool { return len(e) == 0 }

func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Rule is one declarative constraint. Check returns true when the selection passes.
type Rule struct {
	Field   string
	Kind    Kind
	Message string
	Check   func(sel domain.QuoteSelection) bool
}

type Schema struct {
	table    *pricing.Table
	validate *validator.Validate
	rules    []Rule
}

func NewSchema(table *pricing.Table) *Schema {
	if table == nil {
		table = pricing.Default()
	}
	s := &Schema{table: table, validate: validator.New()}
	s.rules = []Rule{
		{
			Field:   FieldSiteType,
			Kind:    KindInvalidEnum,
			Message: "Veuillez sélectionner un type de site.",
			Check:   func(sel domain.QuoteSelection) bool { return IsSiteType(string(sel.SiteType)) },
		},
		{
			Field:   FieldDesignType,
			Kind:    KindInvalidEnum,
			Message: "Veuillez sélectionner un type de design.",
			Check:   func(sel domain.QuoteSelection) bool { return IsDesignType(string(sel.DesignType)) },
		},
		{
			Field:   FieldTechnology,
			Kind:    KindInvalidEnum,
			Message: "Veuillez sélectionner une technologie.",
			Check:   func(sel domain.QuoteSelection) bool { return IsTechnology(string(sel.Technology)) },
		},
		{
			Field:   FieldContactName,
			Kind:    KindRequired,
			Message: "Le nom est requis.",
			Check:   func(sel domain.QuoteSelection) bool { return strings.TrimSpace(sel.Contact.Name) != "" },
		},
		{
			Field:   FieldContactEmail,
			Kind:    KindInvalidFormat,
			Message: "Adresse email invalide.",
			Check:   s.validEmail,
		},
		{
			Field:   FieldAttachments,
			Kind:    KindInvalidFormat,
			Message: "3 fichiers maximum.",
			Check:   func(sel domain.QuoteSelection) bool { return len(sel.Attachments) <= MaxAttachments },
		},
		{
			Field:   FieldAttachments,
			Kind:    KindInvalidFormat,
			Message: "Fichier trop volumineux ou format non accepté (PDF, image, Word ; 10 Mo max).",
			Check:   validAttachments,
		},
	}
	return s
}

func (s *Schema) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Validate evaluates every rule. Only the first failure of a field is kept.
func (s *Schema) Validate(sel domain.QuoteSelection) Errors {
	errs := make(Errors)
	for _, r := range s.rules {
		if _, failed := errs[r.Field]; failed {
			continue
		}
		if !r.Check(sel) {
			errs[r.Field] = FieldError{Field: r.Field, Kind: r.Kind, Message: r.Message}
		}
	}
	return errs
}

// ValidateField evaluates the rules of a single field.
func (s *Schema) ValidateField(sel domain.QuoteSelection, field string) *FieldError {
	for _, r := range s.rules {
		if r.Field != field || r.Check(sel) {
			continue
		}
		return &FieldError{Field: r.Field, Kind: r.Kind, Message: r.Message}
	}
	return nil
}

func (s *Schema) validEmail(sel domain.QuoteSelection) bool {
	return s.validate.Var(strings.TrimSpace(sel.Contact.Email), "required,email") == nil
}

func validAttachments(sel domain.QuoteSelection) bool {
	for _, a := range sel.Attachments {
		if a.Size < 0 || a.Size > MaxAttachmentSize {
			return false
		}
		if !slices.Contains(allowedMimeTypes, a.MimeType) {
			return false
		}
	}
	return true
}

// SanitizeFeatures keeps catalog ids only. Unknown ids are dropped without error.
func (s *Schema) SanitizeFeatures(ids []string) domain.FeatureSet {
	var set domain.FeatureSet
	for _, raw := range ids {
		id := domain.FeatureID(strings.TrimSpace(raw))
		if s.table.HasFeature(id) {
			set.Add(id)
		}
	}
	return set
}

func (s *Schema) KnownFeature(id domain.FeatureID) bool {
	return s.table.HasFeature(id)
}
