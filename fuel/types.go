/*
types.go - Core data model for the fuel ledger

PURPOSE:
  Defines the records the ledger works with: containers (bidons), refill
  additions, dispense transactions, and the catalog entities that
  transactions reference (vehicles, vehicle types, sectors).

QUANTITIES:
  Every quantity and money amount is a decimal.Decimal. Litres are kept
  to 2 places, totals to 2 places. Price snapshots on a transaction are
  decimal.NullDecimal because a dispense before any refill has no price.

BALANCE:
  Container.CurrentLevel is maintained incrementally by the Ledger. The
  invariant it must satisfy is:

    CurrentLevel == InitialLevel + sum(additions) - sum(transactions)

  InitialLevel is the genesis balance set when the container is created
  (or shifted by a manual level correction).

SOFT DELETE:
  Containers, vehicles, vehicle types and sectors are never removed.
  IsActive=false hides them from listings and reports while keeping
  historical ledger rows resolvable.

SEE ALSO:
  - ledger.go: Balance updates
  - store.go: Persistence interfaces
  - report.go: Aggregations over these records
*/
package fuel

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FUEL TYPE
// =============================================================================

// FuelType is the kind of fuel a container holds or a vehicle burns.
type FuelType string

const (
	FuelDiesel FuelType = "dizel"
	FuelPetrol FuelType = "benzin"
	FuelGas    FuelType = "gas"
)

// Valid reports whether f is one of the known fuel types.
func (f FuelType) Valid() bool {
	switch f {
	case FuelDiesel, FuelPetrol, FuelGas:
		return true
	}
	return false
}

// ParseFuelType parses a fuel type, defaulting to diesel when s is empty.
func ParseFuelType(s string) (FuelType, error) {
	if strings.TrimSpace(s) == "" {
		return FuelDiesel, nil
	}
	f := FuelType(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", &ValidationError{Field: "fuelType", Message: fmt.Sprintf("unknown fuel type %q", s)}
	}
	return f, nil
}

// =============================================================================
// LEDGER RECORDS
// =============================================================================

// Container is a fuel reservoir.
type Container struct {
	ID             int64
	Name           string
	CapacityLiters decimal.Decimal
	CurrentLevel   decimal.Decimal
	InitialLevel   decimal.Decimal
	FuelType       FuelType
	Location       string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FillPercent returns the current level as a percentage of capacity.
// Overfilled containers report more than 100.
func (c Container) FillPercent() decimal.Decimal {
	if c.CapacityLiters.IsZero() {
		return decimal.Zero
	}
	return c.CurrentLevel.Div(c.CapacityLiters).Mul(decimal.NewFromInt(100)).Round(1)
}

// Addition is a refill event. Immutable once recorded.
type Addition struct {
	ID             int64
	ContainerID    int64
	QuantityLiters decimal.Decimal
	PricePerLiter  decimal.Decimal
	TotalPrice     decimal.Decimal
	Supplier       string
	ReceiptNumber  string
	Notes          string
	AddedAt        time.Time
	CreatedBy      *int64
}

// Transaction is a dispense event from a container to a vehicle.
type Transaction struct {
	ID              int64
	ContainerID     int64
	VehicleID       int64
	SectorID        *int64
	QuantityLiters  decimal.Decimal
	PricePerLiter   decimal.NullDecimal
	TotalPrice      decimal.NullDecimal
	OdometerReading *int64
	OperatorName    string
	Notes           string
	TransactionAt   time.Time
	CreatedBy       *int64
}

// TransactionView is a transaction joined with the names of what it references.
type TransactionView struct {
	Transaction
	ContainerName       string
	VehicleName         string
	VehicleRegistration string
	SectorName          string
}

// =============================================================================
// CATALOG
// =============================================================================

// Vehicle is anything that receives fuel: cars, tractors, chainsaws, generators.
type Vehicle struct {
	ID            int64
	Name          string
	Registration  string
	VehicleTypeID *int64
	SectorID      *int64
	FuelType      FuelType
	Notes         string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VehicleType is a labelled vehicle category. System types cannot be deleted.
type VehicleType struct {
	ID        int64
	Name      string
	Icon      string
	IsSystem  bool
	IsActive  bool
	CreatedAt time.Time
}

// Sector is an organisational grouping used for reporting.
type Sector struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// =============================================================================
// INPUTS
// =============================================================================

// NewContainer describes a container to create. CurrentLevel becomes the
// genesis balance.
type NewContainer struct {
	Name           string
	CapacityLiters decimal.Decimal
	CurrentLevel   decimal.Decimal
	FuelType       FuelType
	Location       string
}

// ContainerUpdate is a partial update; nil fields are left unchanged.
type ContainerUpdate struct {
	Name           *string
	CapacityLiters *decimal.Decimal
	CurrentLevel   *decimal.Decimal
	FuelType       *FuelType
	Location       *string
}

// AddFuelInput describes a refill.
type AddFuelInput struct {
	ContainerID    int64
	QuantityLiters decimal.Decimal
	PricePerLiter  decimal.Decimal
	Supplier       string
	ReceiptNumber  string
	Notes          string
	AddedAt        time.Time // zero means now
	CreatedBy      *int64
}

// DispenseInput describes a dispense.
type DispenseInput struct {
	ContainerID     int64
	VehicleID       int64
	SectorID        *int64
	QuantityLiters  decimal.Decimal
	OdometerReading *int64
	OperatorName    string
	Notes           string
	TransactionAt   time.Time // zero means now
	CreatedBy       *int64
}

// TransactionFilter narrows transaction listings. Zero values mean "any".
type TransactionFilter struct {
	ContainerID *int64
	VehicleID   *int64
	Range       *DateRange
	Limit       int
}

// AdditionFilter narrows addition listings.
type AdditionFilter struct {
	ContainerID *int64
	Range       *DateRange
	Limit       int
}

// DateRange is a closed interval [Start, End].
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the closed range. A nil range
// contains everything.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// Validate checks that the range is not inverted.
func (r *DateRange) Validate() error {
	if r != nil && r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// MonthRange returns the closed range covering the calendar month of t.
func MonthRange(t time.Time) *DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return &DateRange{Start: start, End: end}
}
