package fhir

// ConditionalAction is what a conditional interaction does once its search
// criteria have been evaluated.
type ConditionalAction int

const (
	// ConditionalNoMatch: proceed as the unconditional interaction would.
	ConditionalNoMatch ConditionalAction = iota
	// ConditionalSingleMatch: act on the one matched resource.
	ConditionalSingleMatch
)

// Interaction names used in conditional diagnostics.
const (
	InteractionCreate = "conditional create"
	InteractionUpdate = "conditional update"
	InteractionDelete = "conditional delete"
)

// ResolveConditional maps the number of resources matched by the criteria of
// a conditional interaction onto the action to take.
// - 0 matches: ConditionalNoMatch
// - 1 match: ConditionalSingleMatch
// - 2+ matches: 412 Precondition Failed
func ResolveConditional(interaction string, count int) (ConditionalAction, error) {
	switch {
	case count <= 0:
		return ConditionalNoMatch, nil
	case count == 1:
		return ConditionalSingleMatch, nil
	default:
		return ConditionalNoMatch, ErrMultipleMatches(interaction, count)
	}
}
