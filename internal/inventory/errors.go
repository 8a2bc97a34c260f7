package inventory

import (
	"errors"
	"fmt"

	"github.com/san-kum/raddecay/internal/nucdata"
)

var (
	ErrInvalidTime       = errors.New("inventory: invalid decay time")
	ErrNegativeQuantity  = errors.New("inventory: negative quantity")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be finite and non-negative")
	ErrInvalidFactor     = errors.New("inventory: invalid scale factor")
	ErrNotPresent        = errors.New("inventory: nuclide not in inventory")
	ErrDatasetMismatch   = errors.New("inventory: inventories use different datasets")
	ErrNoEvolver         = errors.New("inventory: no evolver bound")
	ErrEvolverMismatched = errors.New("inventory: evolver returned wrong number of results")
)

type InvalidTimeError struct {
	T float64
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("%v: %g", ErrInvalidTime, e.T)
}

func (e *InvalidTimeError) Unwrap() error { return ErrInvalidTime }

// NegativeQuantityError is returned by Subtract when a result falls below
// the noise tolerance.
type NegativeQuantityError struct {
	ID    nucdata.ID
	Value float64
}

func (e *NegativeQuantityError) Error() string {
	return fmt.Sprintf("%v: %s would be %g", ErrNegativeQuantity, e.ID, e.Value)
}

func (e *NegativeQuantityError) Unwrap() error { return ErrNegativeQuantity }
