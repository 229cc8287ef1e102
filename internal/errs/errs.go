// Package errs provides error list for components that fail together.
package errs

import (
	"errors"
	"strings"
)

// List wraps errors that might occur when multiple components are
// failing.
type List []error

func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match provided sentinel error.
func (e List) Is(err error) bool {
	for _, se := range e {
		if errors.Is(se, err) {
			return true
		}
	}
	return false
}

// Add appends non-nil error to the list.
func (e *List) Add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

// Ret returns untyped nil if error list is empty.
func (e List) Ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
