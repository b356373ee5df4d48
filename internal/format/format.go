// Package format renders info lookup results as chat replies.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/abccollege/college-chatbot-go/internal/intent"
	"github.com/abccollege/college-chatbot-go/internal/storage"
)

// NotFound is returned when a lookup yields no rows.
const NotFound = "Sorry, I couldn't find any information."

// Unavailable stands in for a missing (NULL or blank) value in a list.
const Unavailable = "not available"

// Currency symbol used for fee amounts.
const rupee = "₹"

type template struct {
	single string // %[1]s department, %[2]s value
	header string
	bullet string // %[1]s department, %[2]s value
}

var templates = map[intent.Intent]template{
	intent.IntentFees: {
		single: "The fee for the %[1]s department is %[2]s per year.",
		header: "Here are the fee details for all departments:",
		bullet: "- %[1]s: %[2]s/year",
	},
	intent.IntentEligibility: {
		single: "The eligibility criteria for the %[1]s department is: %[2]s",
		header: "Eligibility criteria for all departments:",
		bullet: "- %[1]s: %[2]s",
	},
	intent.IntentScholarships: {
		single: "The available scholarships for the %[1]s department are: %[2]s",
		header: "Scholarships available in all departments:",
		bullet: "- %[1]s: %[2]s",
	},
}

var printer = message.NewPrinter(language.English)

// Format renders records for the given intent.
// An intent without a template yields an empty string. A single row with a
// missing value is treated as not found.
func Format(records []storage.InfoRecord, in intent.Intent) string {
	if len(records) == 0 {
		return NotFound
	}
	tmpl, ok := templates[in]
	if !ok {
		return ""
	}

	value := func(r storage.InfoRecord) string {
		if in == intent.IntentFees {
			return Rupees(r.Value)
		}
		return r.Value
	}

	if len(records) == 1 {
		r := records[0]
		if missing(r) {
			return NotFound
		}
		return fmt.Sprintf(tmpl.single, r.Department, value(r))
	}

	var sb strings.Builder
	sb.WriteString(tmpl.header)
	sb.WriteByte('\n')
	for _, r := range records {
		if missing(r) {
			sb.WriteString(fmt.Sprintf("- %s: %s", r.Department, Unavailable))
		} else {
			sb.WriteString(fmt.Sprintf(tmpl.bullet, r.Department, value(r)))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func missing(r storage.InfoRecord) bool {
	return strings.TrimSpace(r.Value) == ""
}

// Rupees formats an amount as "₹85,000". Only the integer part is kept.
// Values that are not numbers are returned unchanged.
func Rupees(raw string) string {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return rupee + printer.Sprintf("%d", n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return raw
	}
	return rupee + printer.Sprintf("%d", int64(f))
}
