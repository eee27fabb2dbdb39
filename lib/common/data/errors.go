package data

import (
	"fmt"
)

// WrapErrors compiles a slice of errors and returns them wrapped together as a single error.
func WrapErrors(errs []error) error {
	var err error
	for i, e := range errs {
		if err == nil {
			err = fmt.Errorf("%d: %w", i, e)
			continue
		}
		err = fmt.Errorf("%w\n\t%d: %w", err, i, e)
	}
	return err
}
