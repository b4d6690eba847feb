package repository

import (
	"strings"
	"testing"
)

func normalizeSQL(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func TestFindMatchingQueryEncodesMatchingRule(t *testing.T) {
	q := normalizeSQL(findMatchingQuery)
	for _, fragment := range []string{
		"fp.category_id = $1",
		"lower(fp.area) = lower($2)",
		"fp.verification_status = 'approved'",
		"($3 = false or fp.is_available)",
	} {
		if !strings.Contains(q, fragment) {
			t.Fatalf("expected %q in %s", fragment, q)
		}
	}
}

func TestProfileQueryJoinsUserAndCategory(t *testing.T) {
	q := normalizeSQL(getByIDQuery)
	if !strings.Contains(q, "join users u on u.id = fp.user_id") || !strings.Contains(q, "join categories c") {
		t.Fatalf("getByIDQuery must join users and categories: %s", q)
	}
}
