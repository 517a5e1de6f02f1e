package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a malformed travel request or offer record
// before any graph is built. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Reason }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DataGapError marks mandatory cities that have no incident arcs and cannot
// be bridged by a synthetic ground transfer. It is folded into the Infeasible
// diagnostic, not raised to the caller.
type DataGapError struct {
	Cities []string
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no offers or drivable transfer reach mandatory cities: %s", strings.Join(e.Cities, ", "))
}
