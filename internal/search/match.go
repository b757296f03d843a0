package search

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ehr/fhirmock/internal/platform/fhir"
)

// fold normalizes s for case- and accent-insensitive comparison.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// matchString: default and :contains are folded substring matches, :exact
// is a case-sensitive equality.
func matchString(found any, value string, mod fhir.SearchModifier) bool {
	s, ok := found.(string)
	if !ok {
		return false
	}
	if mod == fhir.ModifierExact {
		return s == value
	}
	return strings.Contains(fold(s), fold(value))
}

// matchToken compares a "system|code" search value with either a token
// object (identifier, coding) or a plain string (status, id). An empty
// system matches any system; an empty code matches any code in the system.
func matchToken(found any, value string, def Definition) bool {
	system, code, hasSystem := fhir.SplitToken(value)

	switch f := found.(type) {
	case string:
		if f == value {
			return true
		}
		return hasSystem && system == "" && f == code
	case map[string]any:
		systemKey, codeKey := def.SystemKey, def.CodeKey
		if systemKey == "" {
			systemKey = "system"
		}
		if codeKey == "" {
			codeKey = "code"
		}
		gotSystem, _ := f[systemKey].(string)
		gotCode, _ := f[codeKey].(string)

		switch {
		case !hasSystem, system == "":
			return gotCode == code
		case code == "":
			return gotSystem == system
		default:
			return gotSystem == system && gotCode == code
		}
	}
	return false
}

// matchReference: "Type/id" matches a stored reference equal to it or an
// absolute URL ending in it; a bare id matches any reference whose last
// segment is that id. A type modifier (subject:Patient=123) qualifies a bare
// id with the type.
func matchReference(found any, value string, mod fhir.SearchModifier) bool {
	ref, ok := found.(string)
	if !ok || ref == "" || value == "" {
		return false
	}
	if mod != "" && !strings.Contains(value, "/") {
		value = string(mod) + "/" + value
	}

	if strings.Contains(value, "/") {
		return ref == value ||
			strings.HasSuffix(ref, "/"+value) ||
			strings.HasSuffix(value, "/"+ref)
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return ref == value
}

// matchDate compares an instant such as meta.lastUpdated with a prefixed
// date search value. Unparseable values never match.
func matchDate(found any, value string) bool {
	s, ok := found.(string)
	if !ok {
		return false
	}
	at, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return false
	}
	matched, err := fhir.MatchDate(at, value)
	return err == nil && matched
}
