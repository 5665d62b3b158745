package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationSubmitted Type = "application.submitted"
	TypeApplicationApproved  Type = "application.approved"
	TypeApplicationRejected  Type = "application.rejected"
	TypeApplicationWithdrawn Type = "application.withdrawn"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationSubmitted,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeApplicationWithdrawn:
		return true
	default:
		return false
	}
}
