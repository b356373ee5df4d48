// Package intent maps free-text questions to an info intent and a department.
//
// Matching is a flat case-insensitive substring scan over fixed keyword and
// alias lists. Short aliases match inside unrelated words ("it" in
// "eligibility", "ai" in "available"); callers rely on this behavior, so it
// is kept as is.
package intent

import "strings"

// Intent is the info category a question asks about.
// The zero value means no structured intent was detected.
type Intent string

const (
	// IntentNone routes the message to the conversational fallback.
	IntentNone Intent = ""
	// IntentFees asks for the yearly fee of a department.
	IntentFees Intent = "fees_structure"
	// IntentEligibility asks for admission eligibility criteria.
	IntentEligibility Intent = "eligibility_criteria"
	// IntentScholarships asks for available scholarships.
	IntentScholarships Intent = "scholarships"
)

// intentKeywords is checked in order; the first group with a hit wins.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentFees, []string{"fee", "fees", "cost", "price"}},
	{IntentEligibility, []string{"eligibility", "requirement", "qualify", "criteria"}},
	{IntentScholarships, []string{"scholarship", "scholarships"}},
}

// Intents returns the known intents in detection priority order.
func Intents() []Intent {
	out := make([]Intent, 0, len(intentKeywords))
	for _, g := range intentKeywords {
		out = append(out, g.intent)
	}
	return out
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, g := range intentKeywords {
		if g.intent == i {
			return true
		}
	}
	return false
}

// String returns the intent tag.
func (i Intent) String() string {
	return string(i)
}

// ParseIntent converts a tag back into an Intent.
func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.TrimSpace(strings.ToLower(s)))
	if !i.Valid() {
		return IntentNone, false
	}
	return i, true
}

// Department is a department code such as "CSE".
// The zero value means no department was mentioned.
type Department string

// Department codes in declaration order. Order matters: the first
// department with a matching alias wins.
const (
	DepartmentNone  Department = ""
	DepartmentCSE   Department = "CSE"
	DepartmentIT    Department = "IT"
	DepartmentECE   Department = "ECE"
	DepartmentMECH  Department = "MECH"
	DepartmentCIVIL Department = "CIVIL"
	DepartmentAI    Department = "AI"
)

var departmentAliases = []struct {
	dept    Department
	aliases []string
}{
	{DepartmentCSE, []string{"cse", "computer science", "cs", "comp sci"}},
	{DepartmentIT, []string{"it", "information technology", "iy"}},
	{DepartmentECE, []string{"ece", "electronics", "electronics and communication"}},
	{DepartmentMECH, []string{"mech", "mechanical", "mechanical engineering"}},
	{DepartmentCIVIL, []string{"civil", "civil engineering"}},
	{DepartmentAI, []string{"ai", "artificial intelligence", "ai & ds", "ai and data science"}},
}

// Departments returns all department codes in declaration order.
func Departments() []Department {
	out := make([]Department, 0, len(departmentAliases))
	for _, d := range departmentAliases {
		out = append(out, d.dept)
	}
	return out
}

// Aliases returns a copy of the lowercase aliases for d.
func (d Department) Aliases() []string {
	for _, entry := range departmentAliases {
		if entry.dept == d {
			return append([]string(nil), entry.aliases...)
		}
	}
	return nil
}

// String returns the department code.
func (d Department) String() string {
	return string(d)
}

// Result is the outcome of classifying one message.
type Result struct {
	Intent     Intent
	Department Department
}

// HasIntent reports whether a structured intent was found.
func (r Result) HasIntent() bool {
	return r.Intent != IntentNone
}

// Classify detects the intent and department mentioned in text.
// It never fails; either field may be empty.
func Classify(text string) Result {
	lower := strings.ToLower(text)
	return Result{
		Intent:     detectIntent(lower),
		Department: detectDepartment(lower),
	}
}

func detectIntent(lower string) Intent {
	for _, g := range intentKeywords {
		if containsAny(lower, g.keywords) {
			return g.intent
		}
	}
	return IntentNone
}

func detectDepartment(lower string) Department {
	for _, entry := range departmentAliases {
		if containsAny(lower, entry.aliases) {
			return entry.dept
		}
	}
	return DepartmentNone
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
