package shell

import (
	"errors"
	"fmt"
)

// SideEffects runs collaborator calls after a transaction committed and collects their failures.
// A failing call never stops the following ones.
type SideEffects struct {
	errs []error
}

// Run executes fn and remembers its error, labeled with name.
func (s *SideEffects) Run(name string, fn func() error) {
	if err := fn(); err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", name, err))
	}
}

// Err returns all collected failures joined, or nil.
func (s *SideEffects) Err() error {
	return errors.Join(s.errs...)
}
