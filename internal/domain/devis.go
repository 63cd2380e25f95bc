package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DevisStatus string

const (
	DevisStatusPending  DevisStatus = "pending"
	DevisStatusSent     DevisStatus = "sent"
	DevisStatusAccepted DevisStatus = "accepted"
	DevisStatusRejected DevisStatus = "rejected"
)

var devisTransitions = map[DevisStatus][]DevisStatus{
	DevisStatusPending: {DevisStatusSent},
	DevisStatusSent:    {DevisStatusAccepted, DevisStatusRejected},
}

func (s DevisStatus) CanTransitionTo(to DevisStatus) bool {
	for _, next := range devisTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Devis is a submitted quote as persisted and published downstream.
type Devis struct {
	ID          uuid.UUID   `json:"id"`
	Number      string      `json:"devisNumber"`
	Contact     Contact     `json:"clientInfo"`
	SiteType    SiteType    `json:"siteType"`
	DesignType  DesignType  `json:"designType"`
	Features    []FeatureID `json:"features"`
	Maintenance Maintenance `json:"maintenance"`
	Technology  Technology  `json:"technology"`
	Description string      `json:"projectDescription,omitempty"`
	Total       int         `json:"total"`
	Recurring   int         `json:"recurring"`
	Status      DevisStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewDevisNumber formats DEV-YYYYMMDD-XXXXXX from the creation date and the record id.
func NewDevisNumber(at time.Time, id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("DEV-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(hex[:6]))
}

// NewDevis builds a pending devis from a submit summary.
func NewDevis(summary *Summary, at time.Time) *Devis {
	id := uuid.New()
	sel := summary.Selection
	return &Devis{
		ID:          id,
		Number:      NewDevisNumber(at, id),
		Contact:     sel.Contact,
		SiteType:    sel.SiteType,
		DesignType:  sel.DesignType,
		Features:    sel.Features.IDs(),
		Maintenance: sel.Maintenance,
		Technology:  sel.Technology,
		Description: sel.ProjectDescription,
		Total:       summary.Total,
		Recurring:   summary.Recurring,
		Status:      DevisStatusPending,
		CreatedAt:   at,
	}
}
