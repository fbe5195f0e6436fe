package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoClaims is returned when extraction succeeds but yields nothing to analyze
var ErrNoClaims = errors.New("no claims extracted")

// ExtractionError wraps a failed claim extraction call
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("claim extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
