package fhir

import (
	"fmt"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

const (
	BundleTypeSearchset = "searchset"
	SearchModeMatch     = "match"
	SearchModeOutcome   = "outcome"
)

// SearchBundleParams holds pagination and link information for a search bundle.
type SearchBundleParams struct {
	BaseURL      string
	ResourceType string
	// QueryStr is the canonical query without _count and _offset.
	QueryStr string
	// Count is the page size; a negative value means unbounded.
	Count  int
	Offset int
	Total  int
	// Outcome, when set, is appended as an entry with search mode "outcome".
	Outcome *fhirmodels.OperationOutcome
}

// NewSearchBundle creates a searchset Bundle from one page of matches. Total
// is taken from params and counts all matches, not just this page.
func NewSearchBundle(resources []fhirmodels.Resource, params SearchBundleParams) *fhirmodels.Bundle {
	entries := make([]fhirmodels.BundleEntry, 0, len(resources)+1)
	for _, r := range resources {
		entries = append(entries, fhirmodels.BundleEntry{
			FullURL:  FullURL(params.BaseURL, r.ResourceType(), r.ID()),
			Resource: r,
			Search:   &fhirmodels.BundleSearch{Mode: SearchModeMatch},
		})
	}
	if params.Outcome != nil {
		entries = append(entries, fhirmodels.BundleEntry{
			Resource: params.Outcome,
			Search:   &fhirmodels.BundleSearch{Mode: SearchModeOutcome},
		})
	}
	if len(entries) == 0 {
		entries = nil
	}

	return &fhirmodels.Bundle{
		ResourceType: "Bundle",
		Type:         BundleTypeSearchset,
		Total:        params.Total,
		Link:         buildPaginationLinks(params),
		Entry:        entries,
	}
}

// FullURL builds the absolute URL of a resource.
func FullURL(baseURL, resourceType, id string) string {
	if resourceType == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", baseURL, resourceType, id)
}

// buildPaginationLinks creates self, next, and previous links for searchset bundles.
func buildPaginationLinks(params SearchBundleParams) []fhirmodels.BundleLink {
	typeURL := fmt.Sprintf("%s/%s", params.BaseURL, params.ResourceType)

	if params.Count < 0 {
		self := typeURL
		if params.QueryStr != "" {
			self += "?" + params.QueryStr
		}
		return []fhirmodels.BundleLink{{Relation: "self", URL: self}}
	}

	links := []fhirmodels.BundleLink{
		{Relation: "self", URL: pageURL(typeURL, params.QueryStr, params.Count, params.Offset)},
	}

	// Next link: only if there are more results
	nextOffset := params.Offset + params.Count
	if params.Count > 0 && nextOffset < params.Total {
		links = append(links, fhirmodels.BundleLink{
			Relation: "next",
			URL:      pageURL(typeURL, params.QueryStr, params.Count, nextOffset),
		})
	}

	// Previous link: only if not at the first page
	if params.Offset > 0 {
		prevOffset := params.Offset - params.Count
		if prevOffset < 0 {
			prevOffset = 0
		}
		links = append(links, fhirmodels.BundleLink{
			Relation: "previous",
			URL:      pageURL(typeURL, params.QueryStr, params.Count, prevOffset),
		})
	}

	return links
}

func pageURL(typeURL, qs string, count, offset int) string {
	return fmt.Sprintf("%s?%s_count=%d&_offset=%d", typeURL, conditionalAmpersand(qs), count, offset)
}

// conditionalAmpersand returns the query string with a trailing & if non-empty.
func conditionalAmpersand(qs string) string {
	if qs == "" {
		return ""
	}
	return qs + "&"
}
