package transform

import "fmt"

// SchemaError reports a column-name collision produced by normalization.
// It is fatal: the run cannot proceed with an ambiguous column mapping.
type SchemaError struct {
	Column string // normalized name that collided
	First  string // original name that claimed it
	Second string // original name that collided with it
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: columns %q and %q both normalize to %q", e.First, e.Second, e.Column)
}

// TransformationError reports a declared column missing from the input.
// It is fatal: the policy table cannot be applied to an incomplete dataset.
type TransformationError struct {
	Column string
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("transform: required column %q absent from input", e.Column)
}
