package config

import "fmt"

// ParseError indicates that the document is not well formed yaml, or that a
// field's value cannot be coerced to its declared type. Field is empty when
// the document as a whole failed to parse.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config parse error: %v", e.Err)
	}
	return fmt.Sprintf("config parse error at '%v': %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KeyError indicates that a required key is absent, or that an unknown key is
// present (Unknown distinguishes the two). Field is the full dotted path.
type KeyError struct {
	Field   string
	Unknown bool
}

func (e *KeyError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("config key error: unknown key '%v'", e.Field)
	}
	return fmt.Sprintf("config key error: missing required key '%v'", e.Field)
}

// ValidationError indicates that the document parsed but violates a
// cross-field constraint. Field is the full dotted path of the offending
// field and Constraint describes the rule it violates.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error at '%v': %v", e.Field, e.Constraint)
}
