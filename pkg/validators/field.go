package validators

// FieldError ties a validation error to the request field that caused it
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Field wraps err in a FieldError, nil stays nil.
func Field(name string, err error) error {
	if err == nil {
		return nil
	}

	return &FieldError{Field: name, Err: err}
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
