/*
errors.go - Error types for the fuel ledger

PURPOSE:
  All domain errors in one place. Handlers map them to HTTP statuses
  with the helpers at the bottom of this file.

ERROR CATEGORIES:
  1. Validation - bad quantities, prices, names, fuel types
  2. Not found  - container, transaction, vehicle, sector, vehicle type
  3. Conflict   - insufficient fuel, protected system vehicle type
  4. Store      - anything else; wrapped with fmt.Errorf("...: %w")

SEE ALSO:
  - ledger.go: Returns these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package fuel

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrContainerNotFound   = errors.New("container not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrSectorNotFound      = errors.New("sector not found")
	ErrVehicleTypeNotFound = errors.New("vehicle type not found")

	// ErrInsufficientFuel is returned when a dispense exceeds the container level.
	ErrInsufficientFuel = errors.New("insufficient fuel in container")

	// ErrSystemVehicleType is returned when deleting a built-in vehicle type.
	ErrSystemVehicleType = errors.New("cannot delete a system vehicle type")

	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("price per liter must be greater than zero")
	ErrInvalidRange    = errors.New("invalid date range: end before start")

	// ErrInvalidInput is the parent of every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFuelError provides details about a rejected dispense.
type InsufficientFuelError struct {
	ContainerID int64
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientFuelError) Error() string {
	return fmt.Sprintf("insufficient fuel in container %d: available %s L, requested %s L",
		e.ContainerID, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFuelError) Unwrap() error {
	return ErrInsufficientFuel
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrSectorNotFound) ||
		errors.Is(err, ErrVehicleTypeNotFound)
}

// IsConflict returns true if the request was valid but the current state refuses it.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientFuel) ||
		errors.Is(err, ErrSystemVehicleType)
}
