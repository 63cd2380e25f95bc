package form

import (
	"strings"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/validation"
)

// Change is one field edit. Edits decode raw input the way the schema expects:
// an unknown enum literal clears the field, unknown feature ids are dropped and an
// unknown maintenance tier becomes "none".
type Change func(e *edit)

type edit struct {
	sel    *domain.QuoteSelection
	schema *validation.Schema
}

func SetSiteType(raw string) Change {
	return func(e *edit) {
		s, _ := validation.ParseSiteType(raw)
		e.sel.SiteType = s
	}
}

func SetDesignType(raw string) Change {
	return func(e *edit) {
		d, _ := validation.ParseDesignType(raw)
		e.sel.DesignType = d
	}
}

func SetTechnology(raw string) Change {
	return func(e *edit) {
		t, _ := validation.ParseTechnology(raw)
		e.sel.Technology = t
	}
}

func SetMaintenance(raw string) Change {
	return func(e *edit) {
		e.sel.Maintenance = validation.ParseMaintenance(raw)
	}
}

func ToggleFeature(raw string) Change {
	return func(e *edit) {
		id := domain.FeatureID(strings.TrimSpace(raw))
		if e.schema.KnownFeature(id) {
			e.sel.Features.Toggle(id)
		}
	}
}

func SetFeature(raw string, on bool) Change {
	return func(e *edit) {
		id := domain.FeatureID(strings.TrimSpace(raw))
		if !e.schema.KnownFeature(id) {
			return
		}
		if on {
			e.sel.Features.Add(id)
		} else {
			e.sel.Features.Remove(id)
		}
	}
}

func SetFeatures(ids []string) Change {
	return func(e *edit) {
		e.sel.Features = e.schema.SanitizeFeatures(ids)
	}
}

func SetContact(c domain.Contact) Change {
	return func(e *edit) {
		e.sel.Contact = c.Normalize()
	}
}

func SetDescription(text string) Change {
	return func(e *edit) {
		e.sel.ProjectDescription = strings.TrimSpace(text)
	}
}

func SetAttachments(files []domain.Attachment) Change {
	return func(e *edit) {
		e.sel.Attachments = append([]domain.Attachment(nil), files...)
	}
}

// decode re-reads a whole selection through the edit decoders.
func decode(sel domain.QuoteSelection, schema *validation.Schema) domain.QuoteSelection {
	out := sel.Clone()
	ids := make([]string, 0, len(sel.Features.IDs()))
	for _, id := range sel.Features.IDs() {
		ids = append(ids, string(id))
	}

	e := &edit{sel: &out, schema: schema}
	for _, change := range []Change{
		SetSiteType(string(sel.SiteType)),
		SetDesignType(string(sel.DesignType)),
		SetTechnology(string(sel.Technology)),
		SetMaintenance(string(sel.Maintenance)),
		SetFeatures(ids),
	} {
		change(e)
	}
	return out
}
