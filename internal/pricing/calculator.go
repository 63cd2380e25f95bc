package pricing

import (
	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/domain"
)

type Calculator struct {
	table  *Table
	log    *zap.Logger
	strict bool
}

type CalculatorOption func(*Calculator)

func WithLogger(log *zap.Logger) CalculatorOption {
	return func(c *Calculator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStrict makes an unknown pricing key panic instead of contributing zero.
// Meant for development builds where table and schema drift must surface early.
func WithStrict(strict bool) CalculatorOption {
	return func(c *Calculator) {
		c.strict = strict
	}
}

func NewCalculator(table *Table, opts ...CalculatorOption) *Calculator {
	if table == nil {
		table = Default()
	}
	c := &Calculator{table: table, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Table() *Table {
	return c.table
}

// ComputeTotal prices sel. It returns nil while site type or design type is unset,
// so callers can tell "no price yet" from a zero total.
func (c *Calculator) ComputeTotal(sel domain.QuoteSelection) *domain.Breakdown {
	if !sel.Priced() {
		return nil
	}

	b := &domain.Breakdown{
		Base:       c.price(CategorySiteType, string(sel.SiteType)),
		Surcharges: c.price(CategoryDesignType, string(sel.DesignType)),
		Features:   make(map[string]int),
	}

	for _, f := range c.table.features {
		selected := sel.Features.Has(f.ID)
		switch {
		case f.IsForced(sel.SiteType):
			b.Features[f.Label] = 0
			b.Forced = append(b.Forced, f.ID)
		case !selected:
		case !f.Allowed(sel.SiteType):
			b.Excluded = append(b.Excluded, f.ID)
		default:
			b.Features[f.Label] = f.Price
		}
	}

	for _, id := range sel.Features.IDs() {
		if !c.table.HasFeature(id) {
			c.price(CategoryFeature, string(id))
		}
	}

	maintenance := sel.Maintenance
	if maintenance == "" {
		maintenance = domain.MaintenanceNone
	}
	b.Recurring = c.price(CategoryMaintenance, string(maintenance))
	b.Total = b.ItemizedSum()
	return b
}

func (c *Calculator) price(category Category, key string) int {
	p, err := c.table.PriceOf(category, key)
	if err != nil {
		if c.strict {
			panic(err)
		}
		c.log.Warn("pricing key missing, contributing zero",
			zap.String("category", string(category)),
			zap.String("key", key),
			zap.Error(err))
		return 0
	}
	return p
}
