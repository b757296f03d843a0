package fhir

import (
	"fmt"
	"strings"
	"time"
)

// SearchPrefix represents a FHIR search prefix for ordered values.
type SearchPrefix string

const (
	PrefixEq SearchPrefix = "eq"
	PrefixNe SearchPrefix = "ne"
	PrefixGt SearchPrefix = "gt"
	PrefixLt SearchPrefix = "lt"
	PrefixGe SearchPrefix = "ge"
	PrefixLe SearchPrefix = "le"
	PrefixSa SearchPrefix = "sa" // starts after
	PrefixEb SearchPrefix = "eb" // ends before
	PrefixAp SearchPrefix = "ap" // approximately
)

// SearchModifier represents a FHIR search modifier.
type SearchModifier string

const (
	ModifierExact    SearchModifier = "exact"
	ModifierContains SearchModifier = "contains"
	ModifierNot      SearchModifier = "not"
	ModifierMissing  SearchModifier = "missing"
)

// Search parameter types, as used in SearchParameter.type.
const (
	ParamTypeString    = "string"
	ParamTypeToken     = "token"
	ParamTypeReference = "reference"
	ParamTypeDate      = "date"
	ParamTypeURI       = "uri"
)

// ParsedSearch holds a parsed search parameter value with its prefix.
type ParsedSearch struct {
	Prefix SearchPrefix
	Value  string
}

// ParseSearchValue extracts the prefix from a FHIR search value.
// Examples: "gt2023-01-01" -> (gt, "2023-01-01"), "100" -> (eq, "100")
func ParseSearchValue(raw string) ParsedSearch {
	if len(raw) >= 2 {
		prefix := SearchPrefix(strings.ToLower(raw[:2]))
		switch prefix {
		case PrefixEq, PrefixNe, PrefixGt, PrefixLt, PrefixGe, PrefixLe, PrefixSa, PrefixEb, PrefixAp:
			return ParsedSearch{Prefix: prefix, Value: raw[2:]}
		}
	}
	return ParsedSearch{Prefix: PrefixEq, Value: raw}
}

// ParseParamModifier splits a parameter name from its modifier.
// Examples: "name:exact" -> ("name", "exact"), "code" -> ("code", "")
func ParseParamModifier(paramName string) (string, SearchModifier) {
	parts := strings.SplitN(paramName, ":", 2)
	if len(parts) == 2 {
		return parts[0], SearchModifier(parts[1])
	}
	return parts[0], ""
}

// SplitToken splits a token value of the form "system|code". hasSystem
// reports whether a '|' was present at all.
func SplitToken(value string) (system, code string, hasSystem bool) {
	if i := strings.Index(value, "|"); i >= 0 {
		return value[:i], value[i+1:], true
	}
	return "", value, false
}

// ParseFlexDate parses a date string in multiple FHIR-supported formats.
// The returned precision is the length of the interval the value denotes,
// e.g. a whole day for "2024-01-02".
func ParseFlexDate(s string) (time.Time, time.Duration, error) {
	formats := []struct {
		layout    string
		precision time.Duration
	}{
		{time.RFC3339Nano, time.Nanosecond},
		{"2006-01-02T15:04:05", time.Second},
		{"2006-01-02", 24 * time.Hour},
	}
	for _, f := range formats {
		if t, err := time.Parse(f.layout, s); err == nil {
			return t, f.precision, nil
		}
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, t.AddDate(0, 1, 0).Sub(t), nil
	}
	if t, err := time.Parse("2006", s); err == nil {
		return t, t.AddDate(1, 0, 0).Sub(t), nil
	}
	return time.Time{}, 0, fmt.Errorf("unable to parse date: %s", s)
}

func parseFlexDate(s string) (time.Time, error) {
	t, _, err := ParseFlexDate(s)
	return t, err
}

// MatchDate reports whether the instant at satisfies the prefixed date
// search value. Equality means at falls within the interval the value
// denotes; ap widens that interval by a day on either side.
func MatchDate(at time.Time, raw string) (bool, error) {
	parsed := ParseSearchValue(raw)
	start, precision, err := ParseFlexDate(parsed.Value)
	if err != nil {
		return false, err
	}
	end := start.Add(precision) // exclusive

	switch parsed.Prefix {
	case PrefixGt, PrefixSa:
		return !at.Before(end), nil
	case PrefixLt, PrefixEb:
		return at.Before(start), nil
	case PrefixGe:
		return !at.Before(start), nil
	case PrefixLe:
		return at.Before(end), nil
	case PrefixNe:
		return at.Before(start) || !at.Before(end), nil
	case PrefixAp:
		oneDay := 24 * time.Hour
		return !at.Before(start.Add(-oneDay)) && at.Before(end.Add(oneDay)), nil
	default: // eq
		return !at.Before(start) && at.Before(end), nil
	}
}
