package storage

import "fmt"

// LoadError reports a failed batch insert. The failing batch was rolled back
// in full; earlier batches remain committed. Batch is 1-based.
type LoadError struct {
	Batch int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load: batch %d failed: %v", e.Batch, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// VerificationError reports a post-load count mismatch, signaling silent
// data loss between what was submitted and what the destination holds.
type VerificationError struct {
	Expected int64
	Actual   int64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("load verification: expected %d rows in destination, found %d", e.Expected, e.Actual)
}
