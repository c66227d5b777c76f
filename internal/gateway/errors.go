package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// FanOutError reports a cascading operation that only partly completed.
// Succeeded lists the ids written; Failed maps the rest to their errors.
type FanOutError struct {
	Op        string
	Succeeded []string
	Failed    map[string]error
}

func (e *FanOutError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s: %d of %d writes failed (%s)",
		e.Op, len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(ids, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *FanOutError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
