package audit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rohrwerk/callaudit/internal/call"
)

// Allow-lists for extracted intake fields.
var (
	validUrgencies = []string{"notfall", "dringend", "normal"}

	validCategories = []string{
		"Verstopfung",
		"Leck",
		"Heizung",
		"Boiler",
		"Rohrbruch",
		"Sanitär allgemein",
	}

	requiredFields = []string{"plz", "city", "category", "urgency", "description"}
	optionalFields = []string{"street", "house_number"}

	plzFormat = regexp.MustCompile(`^\d{4}$`)
)

// checkExtraction verifies the upstream-extracted business fields:
// required fields present, postal code in Swiss 4-digit format, urgency
// and category within their allow-lists. Optional field presence is
// always reported as info.
func (a *Auditor) checkExtraction(rec *call.Record) []Finding {
	var findings []Finding
	analysis := rec.ExtractedFields()

	for _, field := range requiredFields {
		if strings.TrimSpace(analysis[field]) == "" {
			findings = append(findings, NewFinding(
				CategoryExtractionMissing,
				SeverityWarning,
				fmt.Sprintf("Required field '%s' missing from extraction", field),
				fmt.Sprintf("custom_analysis_data.%s is empty or absent.", field),
				"",
				map[string]any{"field": field, "present": false},
			))
		}
	}

	if plz := analysis["plz"]; plz != "" && !plzFormat.MatchString(strings.TrimSpace(plz)) {
		findings = append(findings, NewFinding(
			CategoryExtractionInvalid,
			SeverityWarning,
			"PLZ value is not 4 digits",
			"Extracted PLZ does not match expected Swiss format (4 digits).",
			"",
			map[string]any{"field": "plz", "valid": false},
		))
	}

	if urgency := analysis["urgency"]; urgency != "" && !contains(validUrgencies, strings.ToLower(strings.TrimSpace(urgency))) {
		findings = append(findings, NewFinding(
			CategoryExtractionInvalid,
			SeverityWarning,
			"Urgency value not in allowlist",
			fmt.Sprintf("Extracted urgency is not one of: %s.", strings.Join(validUrgencies, ", ")),
			"",
			map[string]any{"field": "urgency", "valid": false},
		))
	}

	if cat := analysis["category"]; cat != "" && !contains(validCategories, strings.TrimSpace(cat)) {
		findings = append(findings, NewFinding(
			CategoryExtractionInvalid,
			SeverityWarning,
			"Category value not in allowlist",
			fmt.Sprintf("Extracted category is not one of the %d valid values.", len(validCategories)),
			"",
			map[string]any{"field": "category", "valid": false},
		))
	}

	for _, field := range optionalFields {
		present := strings.TrimSpace(analysis[field]) != ""
		status := "absent"
		if present {
			status = "present"
		}
		findings = append(findings, NewFinding(
			CategoryExtractionInfo,
			SeverityInfo,
			fmt.Sprintf("Optional field '%s': %s", field, status),
			"Optional extraction field status.",
			"",
			map[string]any{"field": field, "present": present},
		))
	}

	return findings
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
