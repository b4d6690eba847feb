// Package plans loads the subscription price list.
package plans

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultCatalog []byte

// Plan is the price and duration of one purchasable plan.
type Plan struct {
	Label        string `yaml:"label" json:"label"`
	Amount       int    `yaml:"amount" json:"amount"`
	DurationDays int    `yaml:"durationDays" json:"durationDays"`
}

// Catalog lists every plan on sale.
type Catalog struct {
	Currency  string          `yaml:"currency" json:"currency"`
	Lead      Plan            `yaml:"lead" json:"lead"`
	Positions map[int]Plan    `yaml:"positions" json:"positions"`
	Badges    map[string]Plan `yaml:"badges" json:"badges"`
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	normalized := make(map[string]Plan, len(c.Badges))
	for k, v := range c.Badges {
		normalized[strings.ToLower(k)] = v
	}
	c.Badges = normalized
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Currency == "" {
		return fmt.Errorf("plan catalog: currency is required")
	}
	if err := checkPlan("lead", c.Lead); err != nil {
		return err
	}
	for pos := domain.MinPosition; pos <= domain.MaxPosition; pos++ {
		p, ok := c.Positions[pos]
		if !ok {
			return fmt.Errorf("plan catalog: position %d is missing", pos)
		}
		if err := checkPlan(fmt.Sprintf("position %d", pos), p); err != nil {
			return err
		}
	}
	for name, p := range c.Badges {
		if err := checkPlan("badge "+name, p); err != nil {
			return err
		}
	}
	return nil
}

func checkPlan(name string, p Plan) error {
	if p.Amount < 0 || p.DurationDays <= 0 {
		return fmt.Errorf("plan catalog: %s needs a non-negative amount and a positive duration", name)
	}
	return nil
}

// Quote returns the plan for a purchase request.
func (c *Catalog) Quote(t domain.Type, position int, badgeType string) (Plan, error) {
	switch t {
	case domain.TypeLead:
		return c.Lead, nil
	case domain.TypePosition:
		p, ok := c.Positions[position]
		if !ok {
			return Plan{}, apperr.Validation(fmt.Sprintf("position must be between %d and %d", domain.MinPosition, domain.MaxPosition))
		}
		return p, nil
	case domain.TypeBadge:
		p, ok := c.Badges[strings.ToLower(strings.TrimSpace(badgeType))]
		if !ok {
			return Plan{}, apperr.Validation("unknown badge type").WithDetail("badgeTypes", c.BadgeTypes())
		}
		return p, nil
	default:
		return Plan{}, apperr.Validation("unknown subscription type")
	}
}

// BadgeTypes lists the purchasable badges in name order.
func (c *Catalog) BadgeTypes() []string {
	out := make([]string, 0, len(c.Badges))
	for k := range c.Badges {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
