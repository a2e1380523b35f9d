package issue

import "github.com/frahmantamala/civic-report/internal"

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// CanTransition checks a status move. Staying in the same state is a no-op and
// always allowed; Resolved has no way out and nothing moves backwards.
func CanTransition(from, to Status) error {
	if !to.Valid() {
		return invalidStatusError()
	}
	if from == to {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return internal.ErrInvalidTransition
}

func invalidStatusError() error {
	return internal.NewValidationFieldError("status", "status must be one of: Open, In Progress, Resolved", internal.ErrCodeInvalidStatus)
}
