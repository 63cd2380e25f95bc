package service

import (
	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/form"
)

// Patch is a partial edit of a quote session. Nil fields are left untouched;
// Toggle flips individual feature ids after Features has been applied.
type Patch struct {
	SiteType           *string              `json:"siteType,omitempty"`
	DesignType         *string              `json:"designType,omitempty"`
	Features           *[]string            `json:"features,omitempty"`
	Toggle             []string             `json:"toggle,omitempty"`
	Maintenance        *string              `json:"maintenance,omitempty"`
	Technology         *string              `json:"technology,omitempty"`
	Contact            *domain.Contact      `json:"contact,omitempty"`
	ProjectDescription *string              `json:"projectDescription,omitempty" validate:"omitempty,max=5000"`
	Attachments        *[]domain.Attachment `json:"attachments,omitempty"`
}

func (p Patch) Changes() []form.Change {
	var changes []form.Change
	if p.SiteType != nil {
		changes = append(changes, form.SetSiteType(*p.SiteType))
	}
	if p.DesignType != nil {
		changes = append(changes, form.SetDesignType(*p.DesignType))
	}
	if p.Features != nil {
		changes = append(changes, form.SetFeatures(*p.Features))
	}
	for _, id := range p.Toggle {
		changes = append(changes, form.ToggleFeature(id))
	}
	if p.Maintenance != nil {
		changes = append(changes, form.SetMaintenance(*p.Maintenance))
	}
	if p.Technology != nil {
		changes = append(changes, form.SetTechnology(*p.Technology))
	}
	if p.Contact != nil {
		changes = append(changes, form.SetContact(*p.Contact))
	}
	if p.ProjectDescription != nil {
		changes = append(changes, form.SetDescription(*p.ProjectDescription))
	}
	if p.Attachments != nil {
		changes = append(changes, form.SetAttachments(*p.Attachments))
	}
	return changes
}

// SessionView is a session's state as returned to clients.
type SessionView struct {
	ID string `json:"id"`
	// DevisNumber is set once a submission of this session has been saved.
	DevisNumber string `json:"devisNumber,omitempty"`
	form.State
}
