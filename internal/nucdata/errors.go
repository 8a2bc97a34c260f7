package nucdata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNuclide indicates an identifier missing from the dataset.
	ErrUnknownNuclide = errors.New("nucdata: unknown nuclide")

	// ErrDataIntegrity indicates decay data that violates a physical invariant.
	ErrDataIntegrity = errors.New("nucdata: data integrity violation")

	// ErrDuplicateNuclide indicates a dataset defining the same nuclide twice.
	ErrDuplicateNuclide = errors.New("nucdata: duplicate nuclide")
)

type UnknownNuclideError struct {
	ID      ID
	Dataset string
}

func (e *UnknownNuclideError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("%v: %s", ErrUnknownNuclide, e.ID)
	}
	return fmt.Sprintf("%v: %s (dataset %s)", ErrUnknownNuclide, e.ID, e.Dataset)
}

func (e *UnknownNuclideError) Unwrap() error { return ErrUnknownNuclide }

// DataIntegrityError reports the nuclide whose data is inconsistent. It is
// fatal for chains through that nuclide only.
type DataIntegrityError struct {
	ID      ID
	Reason  string
	Wrapped error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrDataIntegrity, e.ID, e.Reason)
}

func (e *DataIntegrityError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrDataIntegrity, e.Wrapped}
	}
	return []error{ErrDataIntegrity}
}
