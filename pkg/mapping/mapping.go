package mapping

import "fmt"

// The internal priority scale runs 1 (highest) to 4 (lowest); the external
// service runs 1 (lowest) to 4 (highest). Same cardinality, opposite
// direction, so both conversions are 5 - n.

// ToExternalPriority converts an internal priority level to the external scale.
func ToExternalPriority(internal int) int {
	if internal < 1 || internal > 4 {
		panic(fmt.Sprintf("internal priority out of range: %d", internal))
	}
	return 5 - internal
}

// ToInternalPriority converts an external priority to the internal scale.
func ToInternalPriority(external int) int {
	if external < 1 || external > 4 {
		panic(fmt.Sprintf("external priority out of range: %d", external))
	}
	return 5 - external
}

// PriorityLabel returns the human-readable label for an internal level.
func PriorityLabel(internal int) string {
	switch internal {
	case 1:
		return "urgent"
	case 2:
		return "high"
	case 3:
		return "medium"
	default:
		return "low"
	}
}
