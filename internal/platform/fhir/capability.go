package fhir

import (
	"time"

	"github.com/ehr/fhirmock/pkg/fhirmodels"
)

// NewCapabilityStatement creates the server's capability statement.
func NewCapabilityStatement(baseURL string, resources []fhirmodels.CSResource, common []fhirmodels.CSSearchParam) *fhirmodels.CapabilityStatement {
	return &fhirmodels.CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format("2006-01-02"),
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"json"},
		Implementation: &fhirmodels.CSImplementation{
			Description: "In-memory FHIR R4 mock server",
			URL:         baseURL,
		},
		Rest: []fhirmodels.CSRest{
			{
				Mode:        "server",
				Resource:    resources,
				SearchParam: common,
			},
		},
	}
}

// ResourceCapability creates a CSResource with the interactions the mock
// supports for every type.
func ResourceCapability(resourceType string, searchParams []fhirmodels.CSSearchParam) fhirmodels.CSResource {
	return fhirmodels.CSResource{
		Type: resourceType,
		Interaction: []fhirmodels.CSInteraction{
			{Code: "read"},
			{Code: "search-type"},
			{Code: "create"},
			{Code: "update"},
			{Code: "delete"},
		},
		SearchParam:       searchParams,
		Versioning:        "versioned-update",
		ConditionalCreate: true,
		ConditionalUpdate: true,
		ConditionalDelete: "single",
	}
}
