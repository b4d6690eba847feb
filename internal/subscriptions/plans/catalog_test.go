package plans

import (
	"os"
	"path/filepath"
	"testing"

	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/platform/apperr"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	if c.Currency != "INR" || c.Lead.DurationDays != 30 {
		t.Fatalf("unexpected lead plan %+v", c.Lead)
	}
	if got := c.BadgeTypes(); len(got) != 2 || got[0] != "top_rated" {
		t.Fatalf("unexpected badge types %v", got)
	}
}

func TestQuote(t *testing.T) {
	c, _ := Load("")

	p, err := c.Quote(domain.TypePosition, 1, "")
	if err != nil || p.Amount != 1999 {
		t.Fatalf("position 1 quote = %+v, %v", p, err)
	}
	if _, err := c.Quote(domain.TypePosition, 4, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("position 4 must be rejected, got %v", err)
	}
	if _, err := c.Quote(domain.TypeBadge, 0, "VERIFIED_PRO"); err != nil {
		t.Fatalf("badge lookup must ignore case: %v", err)
	}
	if _, err := c.Quote(domain.TypeBadge, 0, "gold"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown badge must be rejected, got %v", err)
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	data := []byte(`currency: USD
lead: {amount: 10, durationDays: 7}
positions:
  1: {amount: 30, durationDays: 7}
  2: {amount: 20, durationDays: 7}
  3: {amount: 10, durationDays: 7}
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load override: %v", err)
	}
	if c.Currency != "USD" || c.Lead.Amount != 10 || len(c.Badges) != 0 {
		t.Fatalf("unexpected override catalog %+v", c)
	}
}

func TestParseRejectsMissingPosition(t *testing.T) {
	_, err := Parse([]byte(`currency: INR
lead: {amount: 1, durationDays: 1}
positions:
  1: {amount: 1, durationDays: 1}
`))
	if err == nil {
		t.Fatalf("expected missing position error")
	}
}
