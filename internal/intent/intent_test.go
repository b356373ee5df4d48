package intent

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantIntent Intent
		wantDept   Department
	}{
		{"fees with department", "What are the fees for CSE?", IntentFees, DepartmentCSE},
		{"uppercase input", "FEES FOR MECH", IntentFees, DepartmentMECH},
		{"cost keyword", "ece cost per year", IntentFees, DepartmentECE},
		{"price keyword without department", "what is the price", IntentFees, DepartmentNone},
		{"eligibility alias phrase", "can I qualify for comp sci", IntentEligibility, DepartmentCSE},
		{"scholarships civil", "Scholarships in civil engineering", IntentScholarships, DepartmentCIVIL},
		{"ai department", "fees for ai and data science", IntentFees, DepartmentAI},
		{"greeting", "hello how are you", IntentNone, DepartmentNone},
		{"empty", "", IntentNone, DepartmentNone},
		{"department only", "tell me about information technology", IntentNone, DepartmentIT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got.Intent != tt.wantIntent {
				t.Errorf("Classify(%q).Intent = %q, want %q", tt.input, got.Intent, tt.wantIntent)
			}
			if got.Department != tt.wantDept {
				t.Errorf("Classify(%q).Department = %q, want %q", tt.input, got.Department, tt.wantDept)
			}
		})
	}
}

func TestClassify_IntentPriority(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{"fee eligibility scholarship", IntentFees},
		{"scholarship price", IntentFees},
		{"eligibility and scholarships", IntentEligibility},
		{"requirement for a scholarship", IntentEligibility},
		{"any scholarships", IntentScholarships},
	}

	for _, tt := range tests {
		if got := Classify(tt.input).Intent; got != tt.want {
			t.Errorf("Classify(%q).Intent = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassify_FirstDeclaredDepartmentWins(t *testing.T) {
	tests := []struct {
		input string
		want  Department
	}{
		{"fees for cse and it", DepartmentCSE},
		{"fees for civil and ece", DepartmentECE},
		{"mech or ai", DepartmentMECH},
	}

	for _, tt := range tests {
		if got := Classify(tt.input).Department; got != tt.want {
			t.Errorf("Classify(%q).Department = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Short aliases match inside other words. These cases pin the current
// behavior so that a change to the matcher is a conscious decision.
func TestClassify_SubstringFalsePositives(t *testing.T) {
	tests := []struct {
		input string
		want  Department
	}{
		{"what is the eligibility", DepartmentIT},         // "it" in "eligibility"
		{"price of electronics", DepartmentCSE},           // "cs" in "electronics"
		{"what scholarships are available", DepartmentAI}, // "ai" in "available"
		{"how much does a seat cost", DepartmentNone},
	}

	for _, tt := range tests {
		if got := Classify(tt.input).Department; got != tt.want {
			t.Errorf("Classify(%q).Department = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassify_FeeKeywordAlwaysYieldsFees(t *testing.T) {
	for _, kw := range []string{"fee", "fees", "cost", "price"} {
		for _, tmpl := range []string{"%s", "what is the %s", "%s for cse?", "THE %s PLEASE"} {
			input := fmt.Sprintf(tmpl, kw)
			if got := Classify(input).Intent; got != IntentFees {
				t.Errorf("Classify(%q).Intent = %q, want %q", input, got, IntentFees)
			}
		}
	}
}

func TestClassify_AnyAliasYieldsDepartment(t *testing.T) {
	for _, dept := range Departments() {
		for _, alias := range dept.Aliases() {
			got := Classify("fees for " + alias).Department
			// An earlier-declared department may claim the alias first
			// ("electronics" contains "cs").
			if got != dept && !declaredBefore(got, dept) {
				t.Errorf("alias %q: got %q, want %q or an earlier department", alias, got, dept)
			}
		}
	}
}

func TestIntentHelpers(t *testing.T) {
	if IntentNone.Valid() {
		t.Error("IntentNone should not be valid")
	}
	for _, i := range Intents() {
		if !i.Valid() {
			t.Errorf("%q should be valid", i)
		}
		parsed, ok := ParseIntent(" " + string(i) + " ")
		if !ok || parsed != i {
			t.Errorf("ParseIntent(%q) = %q, %v", i, parsed, ok)
		}
	}
	if _, ok := ParseIntent("name; DROP TABLE abc_college"); ok {
		t.Error("ParseIntent accepted an arbitrary column name")
	}
	if got := len(Departments()); got != 6 {
		t.Errorf("Departments() len = %d, want 6", got)
	}
	if Department("XYZ").Aliases() != nil {
		t.Error("unknown department should have no aliases")
	}
}

func declaredBefore(a, b Department) bool {
	for _, d := range Departments() {
		if d == a {
			return true
		}
		if d == b {
			return false
		}
	}
	return false
}
