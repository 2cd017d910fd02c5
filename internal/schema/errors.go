package schema

// ValidationError is a locally detectable problem with the model or an
// incoming action. It blocks the operation before any network call and is
// surfaced to the user as-is, never retried.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// Validation builds a ValidationError.
func Validation(reason string) error { return ValidationError{Reason: reason} }
