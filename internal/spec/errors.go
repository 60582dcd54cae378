package spec

import "fmt"

// ReferenceError reports a $ref that does not resolve within the loaded
// document. It is caught at the builder boundary and degrades to an
// "example unavailable" marker for the affected media type.
type ReferenceError struct {
	Ref string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unresolvable reference %q", e.Ref)
}

// SchemaError reports a malformed schema or composition, such as an allOf
// entry that is neither an object nor a reference. Like ReferenceError it is
// scoped to the schema it occurred in and never aborts the whole document.
type SchemaError struct {
	Reason string
	Cause  error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid schema: %s: %v", e.Reason, e.Cause)
	}
	return "invalid schema: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Cause }
