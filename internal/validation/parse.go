package validation

import (
	"strings"

	"github.com/fjod/go_quote/internal/domain"
)

func IsSiteType(raw string) bool {
	_, ok := ParseSiteType(raw)
	return ok
}

func IsDesignType(raw string) bool {
	_, ok := ParseDesignType(raw)
	return ok
}

func IsTechnology(raw string) bool {
	_, ok := ParseTechnology(raw)
	return ok
}

func ParseSiteType(raw string) (domain.SiteType, bool) {
	return oneOf(raw, domain.SiteTypes())
}

func ParseDesignType(raw string) (domain.DesignType, bool) {
	return oneOf(raw, domain.DesignTypes())
}

func ParseTechnology(raw string) (domain.Technology, bool) {
	return oneOf(raw, domain.Technologies())
}

// ParseMaintenance never fails: anything unrecognised is the "none" tier.
func ParseMaintenance(raw string) domain.Maintenance {
	if m, ok := oneOf(raw, domain.MaintenanceTiers()); ok {
		return m
	}
	return domain.MaintenanceNone
}

func oneOf[T ~string](raw string, values []T) (T, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range values {
		if string(v) == raw {
			return v, true
		}
	}
	var zero T
	return zero, false
}
