package domain

type FormStatus string

const (
	FormStatusEditing         FormStatus = "editing"
	FormStatusSubmitting      FormStatus = "submitting"
	FormStatusSubmittedOK     FormStatus = "submitted_ok"
	FormStatusSubmittedFailed FormStatus = "submitted_failed"
)

var formTransitions = map[FormStatus][]FormStatus{
	FormStatusEditing:         {FormStatusSubmitting},
	FormStatusSubmitting:      {FormStatusSubmittedOK, FormStatusSubmittedFailed},
	FormStatusSubmittedOK:     {FormStatusEditing},
	FormStatusSubmittedFailed: {FormStatusEditing},
}

func CanTransitionTo(from, to FormStatus) bool {
	for _, next := range formTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Notifies reports whether observers may be called in this status.
// Only an in-flight submission holds notifications back. The settled statuses
// notify so that Resolve can flush a change made visible by the submission
// ending; any further edit moves the form back to editing first.
func (s FormStatus) Notifies() bool {
	return s != FormStatusSubmitting
}

func (s FormStatus) IsSettled() bool {
	return s == FormStatusSubmittedOK || s == FormStatusSubmittedFailed
}

// String representation (for logging)
func (s FormStatus) String() string {
	return string(s)
}
