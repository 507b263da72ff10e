package probe

import (
	"strings"
	"time"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// TypePriority is the ordered predicate list used for column inference,
// from most to least specific. A type is accepted only if every non-empty
// sample in the column parses under it; the first accepted type wins and
// string is the terminal fallback. The list is a package variable so the
// priority stays visible to tests.
var TypePriority = []contract.FieldType{
	contract.TypeInteger,
	contract.TypeDecimal,
	contract.TypeDate,
	contract.TypeTimestamp,
	contract.TypeBoolean,
	contract.TypeString,
}

// dateLayouts are tried in fixed priority order. A column is a date only if
// a single layout parses every sample.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

// timestampLayouts are tried in fixed priority order, same single-layout
// rule as dates.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"02.01.2006 15:04:05",
}

// InferColumn infers the narrowest type consistent with every non-empty
// sample of one column. It never fails: a column no single type fits
// degrades to string with Ambiguous set.
//
// Behavior:
//   - nullable ⇔ at least one sample is empty or whitespace-only
//   - zero non-empty samples ⇔ string + ambiguous
//   - decimal grouping convention (US vs European) is resolved once per
//     column by majority of unambiguous values, ties favoring US
//   - ambiguous is also set when the column fell back to string even though
//     some individual sample matched a narrower predicate; columns of plain
//     free text stay unambiguous
func InferColumn(name string, samples []string) contract.FieldSchema {
	field := contract.FieldSchema{Name: name, InferredType: contract.TypeString}

	nonEmpty := make([]string, 0, len(samples))
	for _, s := range samples {
		v := strings.TrimSpace(s)
		if v == "" {
			field.Nullable = true
			continue
		}
		nonEmpty = append(nonEmpty, v)
	}
	field.SampleValues = distinctHead(nonEmpty, sampleValuesPerField)

	if len(nonEmpty) == 0 {
		field.Ambiguous = true
		return field
	}

	convention := resolveConvention(nonEmpty)

	for _, candidate := range TypePriority {
		switch candidate {
		case contract.TypeInteger:
			if allMatch(nonEmpty, isIntegerLiteral) {
				field.InferredType = candidate
				return field
			}
		case contract.TypeDecimal:
			if allMatch(nonEmpty, decimalPredicate(convention)) {
				field.InferredType = candidate
				field.Format = convention
				return field
			}
		case contract.TypeDate:
			if layout := commonLayout(dateLayouts, nonEmpty); layout != "" {
				field.InferredType = candidate
				field.Layout = layout
				return field
			}
		case contract.TypeTimestamp:
			if layout := commonLayout(timestampLayouts, nonEmpty); layout != "" {
				field.InferredType = candidate
				field.Layout = layout
				return field
			}
		case contract.TypeBoolean:
			if allMatch(nonEmpty, isBooleanLiteral) {
				field.InferredType = candidate
				return field
			}
		case contract.TypeString:
			// Terminal fallback. The column is ambiguous when individual
			// samples looked typed but no single type covered them all.
			field.InferredType = candidate
			field.Ambiguous = anyLooksTyped(nonEmpty)
			return field
		}
	}
	return field
}

// allMatch reports whether every sample satisfies the predicate.
func allMatch(samples []string, pred func(string) bool) bool {
	for _, s := range samples {
		if !pred(s) {
			return false
		}
	}
	return true
}

// anyLooksTyped reports whether any single sample matches some predicate
// narrower than string, under either numeric convention.
func anyLooksTyped(samples []string) bool {
	for _, s := range samples {
		if isIntegerLiteral(s) || isDecimalUS(s) || isDecimalEuropean(s) || isBooleanLiteral(s) {
			return true
		}
		if _, ok := parseAnyLayout(dateLayouts, s); ok {
			return true
		}
		if _, ok := parseAnyLayout(timestampLayouts, s); ok {
			return true
		}
	}
	return false
}

// distinctHead returns the first n distinct values in encounter order.
func distinctHead(values []string, n int) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

// ---- numeric predicates ----

// isIntegerLiteral accepts an optional sign followed by plain digits, no
// grouping separators.
func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	return allDigits(s)
}

// resolveConvention picks the numeric grouping convention for a whole
// column. Only values carrying both a thousands group and a decimal part
// are unambiguous evidence; European wins on a strict majority of those,
// otherwise US.
func resolveConvention(samples []string) string {
	us, european := 0, 0
	for _, s := range samples {
		hasComma := strings.Contains(s, ",")
		hasDot := strings.Contains(s, ".")
		if !hasComma || !hasDot {
			continue
		}
		if isDecimalUS(s) {
			us++
		}
		if isDecimalEuropean(s) {
			european++
		}
	}
	if european > us {
		return contract.ConventionEuropean
	}
	return contract.ConventionUS
}

func decimalPredicate(convention string) func(string) bool {
	if convention == contract.ConventionEuropean {
		return isDecimalEuropean
	}
	return isDecimalUS
}

// isDecimalUS accepts 1,234.56 style values: optional sign, digits with
// optional comma groups of three, optional dot decimal part.
func isDecimalUS(s string) bool {
	return isGroupedDecimal(s, ',', '.')
}

// isDecimalEuropean accepts 1.234,56 style values: dot groups, comma
// decimal part.
func isDecimalEuropean(s string) bool {
	return isGroupedDecimal(s, '.', ',')
}

func isGroupedDecimal(s string, group, decimal byte) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}

	intPart := s
	if i := strings.IndexByte(s, decimal); i >= 0 {
		intPart = s[:i]
		frac := s[i+1:]
		if !allDigits(frac) {
			return false
		}
	}

	if strings.IndexByte(intPart, group) < 0 {
		return allDigits(intPart)
	}
	groups := strings.Split(intPart, string(group))
	if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ---- date / timestamp predicates ----

// commonLayout returns the first layout that parses every sample, or "".
// Requiring one shared layout keeps 02/01 vs 01/02 columns from silently
// mixing day-first and month-first readings.
func commonLayout(layouts []string, samples []string) string {
	for _, layout := range layouts {
		ok := true
		for _, s := range samples {
			if _, err := time.Parse(layout, s); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

// parseAnyLayout reports whether the value parses under any of the layouts.
func parseAnyLayout(layouts []string, s string) (string, bool) {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return layout, true
		}
	}
	return "", false
}

// ---- boolean predicate ----

// isBooleanLiteral accepts the fixed literal set, case-insensitive.
func isBooleanLiteral(s string) bool {
	switch strings.ToLower(s) {
	case "1", "0", "t", "f", "true", "false", "yes", "no", "y", "n":
		return true
	}
	return false
}
