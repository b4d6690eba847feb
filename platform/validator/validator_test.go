package validator

import "testing"

type leadPayload struct {
	Title   string `validate:"required,notblank"`
	Pincode string `validate:"omitempty,pincode"`
	Min     int    `validate:"gte=0"`
	Max     int    `validate:"gtefield=Min"`
}

func TestCustomRules(t *testing.T) {
	v := New()

	if err := v.Struct(leadPayload{Title: "Fix tap", Pincode: "302017", Min: 1000, Max: 3000}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := v.Struct(leadPayload{Title: "   ", Pincode: "012345", Min: 500, Max: 100})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	fields := Fields(err)
	rules := map[string]string{}
	for _, f := range fields {
		rules[f.Field] = f.Rule
	}
	if rules["Title"] != "notblank" || rules["Pincode"] != "pincode" || rules["Max"] != "gtefield" {
		t.Fatalf("unexpected field errors %v", fields)
	}
}
