package fhirmodels

// OperationOutcome represents a FHIR OperationOutcome for errors and
// informational results.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

// Envelope is the body returned by create, update and delete. It is an
// OperationOutcome extended with the location and the stored resource.
type Envelope struct {
	ResourceType    string                  `json:"resourceType"`
	Issue           []OperationOutcomeIssue `json:"issue"`
	Location        string                  `json:"location,omitempty"`
	CreatedResource Resource                `json:"created_resource,omitempty"`
	Created         bool                    `json:"created"`
}

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string        `json:"fullUrl,omitempty"`
	Resource any           `json:"resource,omitempty"`
	Search   *BundleSearch `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// Matches returns the resources of entries in search mode "match".
func (b *Bundle) Matches() []Resource {
	var out []Resource
	for _, e := range b.Entry {
		if e.Search != nil && e.Search.Mode != "match" {
			continue
		}
		switch r := e.Resource.(type) {
		case Resource:
			out = append(out, r)
		case map[string]any:
			out = append(out, Resource(r))
		}
	}
	return out
}

// CapabilityStatement is the server's /metadata response.
type CapabilityStatement struct {
	ResourceType   string            `json:"resourceType"`
	Status         string            `json:"status"`
	Date           string            `json:"date"`
	Kind           string            `json:"kind"`
	FHIRVersion    string            `json:"fhirVersion"`
	Format         []string          `json:"format"`
	Implementation *CSImplementation `json:"implementation,omitempty"`
	Rest           []CSRest          `json:"rest"`
}

type CSImplementation struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type CSRest struct {
	Mode        string          `json:"mode"`
	Resource    []CSResource    `json:"resource"`
	SearchParam []CSSearchParam `json:"searchParam,omitempty"`
}

type CSResource struct {
	Type              string          `json:"type"`
	Interaction       []CSInteraction `json:"interaction"`
	SearchParam       []CSSearchParam `json:"searchParam,omitempty"`
	Versioning        string          `json:"versioning,omitempty"`
	ConditionalCreate bool            `json:"conditionalCreate"`
	ConditionalUpdate bool            `json:"conditionalUpdate"`
	ConditionalDelete string          `json:"conditionalDelete,omitempty"`
}

type CSInteraction struct {
	Code string `json:"code"`
}

type CSSearchParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
