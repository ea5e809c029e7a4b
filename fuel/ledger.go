/*
ledger.go - Balance updater for fuel containers

PURPOSE:
  The only code path that changes a container's fuel level. Each
  operation validates first, then applies the ledger row and the level
  change inside one store transaction.

OPERATIONS:
  AddFuel:           insert addition, level += q
  DispenseFuel:      compare-and-decrement level, snapshot price, insert transaction
  DeleteTransaction: level += q, delete transaction
  CreateContainer:   level = genesis balance, no addition
  UpdateContainer:   manual edits; a level change shifts the genesis balance
  DeleteContainer:   soft delete, no ledger effect

INVARIANT:
  CurrentLevel == InitialLevel + sum(additions) - sum(transactions)

  Verify and VerifyAll recompute the right-hand side from the ledger and
  report any drift.

CAPACITY:
  Capacity is informational. AddFuel and DeleteTransaction never check
  it, so a container can read above 100%.

PRICE SNAPSHOT:
  A dispense copies the price of the most recent addition (by AddedAt,
  then ID). With no additions the price and total stay NULL.

OBSERVABILITY:
  WithHook registers a callback invoked once per operation with its
  outcome. cmd/server wires it to slog and Prometheus.

SEE ALSO:
  - store.go: TxStore and DecrementLevel contract
  - errors.go: Returned errors
  - report.go: Read side
*/
package fuel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operation names passed to the ledger hook.
const (
	OpCreateContainer   = "create_container"
	OpUpdateContainer   = "update_container"
	OpDeleteContainer   = "delete_container"
	OpAddFuel           = "add_fuel"
	OpDispenseFuel      = "dispense_fuel"
	OpDeleteTransaction = "delete_transaction"
)

// Hook observes the outcome of a ledger operation. err is nil on success.
type Hook func(op string, err error)

// Ledger applies balance-changing operations.
type Ledger struct {
	store TxStore
	now   func() time.Time
	hook  Hook
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source used for default timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithHook registers an operation observer.
func WithHook(h Hook) LedgerOption {
	return func(l *Ledger) { l.hook = h }
}

// NewLedger creates a ledger over the given store.
func NewLedger(store TxStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		hook:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) observe(op string, err error) error {
	l.hook(op, err)
	return err
}

// maxScale is the number of decimal places the database columns keep.
const maxScale = 2

// checkScale rejects amounts with more decimal places than the database
// stores.
func checkScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(maxScale)) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must have at most %d decimal places", maxScale)}
	}
	return nil
}

// =============================================================================
// CONTAINERS
// =============================================================================

// CreateContainer creates a container whose starting level is a genesis
// balance not backed by any addition.
func (l *Ledger) CreateContainer(ctx context.Context, in NewContainer) (*Container, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, l.observe(OpCreateContainer, &ValidationError{Field: "name", Message: "is required"})
	}
	if in.CapacityLiters.IsNegative() {
		return nil, l.observe(OpCreateContainer, &ValidationError{Field: "capacityLiters", Message: "must not be negative"})
	}
	if in.CurrentLevel.IsNegative() {
		return nil, l.observe(OpCreateContainer, &ValidationError{Field: "currentLevel", Message: "must not be negative"})
	}
	if err := checkScale("capacityLiters", in.CapacityLiters); err != nil {
		return nil, l.observe(OpCreateContainer, err)
	}
	if err := checkScale("currentLevel", in.CurrentLevel); err != nil {
		return nil, l.observe(OpCreateContainer, err)
	}
	fuelType := in.FuelType
	if fuelType == "" {
		fuelType = FuelDiesel
	}
	if !fuelType.Valid() {
		return nil, l.observe(OpCreateContainer, &ValidationError{Field: "fuelType", Message: fmt.Sprintf("unknown fuel type %q", fuelType)})
	}

	now := l.now()
	c := &Container{
		Name:           name,
		CapacityLiters: in.CapacityLiters,
		CurrentLevel:   in.CurrentLevel,
		InitialLevel:   in.CurrentLevel,
		FuelType:       fuelType,
		Location:       strings.TrimSpace(in.Location),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := l.store.InsertContainer(ctx, c); err != nil {
		return nil, l.observe(OpCreateContainer, fmt.Errorf("failed to create container: %w", err))
	}
	return c, l.observe(OpCreateContainer, nil)
}

// UpdateContainer applies a partial update. Changing CurrentLevel is a
// manual correction: InitialLevel moves by the same delta so the ledger
// invariant still holds afterwards.
func (l *Ledger) UpdateContainer(ctx context.Context, id int64, upd ContainerUpdate) (*Container, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, l.observe(OpUpdateContainer, &ValidationError{Field: "name", Message: "is required"})
	}
	if upd.CapacityLiters != nil && upd.CapacityLiters.IsNegative() {
		return nil, l.observe(OpUpdateContainer, &ValidationError{Field: "capacityLiters", Message: "must not be negative"})
	}
	if upd.CurrentLevel != nil && upd.CurrentLevel.IsNegative() {
		return nil, l.observe(OpUpdateContainer, &ValidationError{Field: "currentLevel", Message: "must not be negative"})
	}
	if upd.CapacityLiters != nil {
		if err := checkScale("capacityLiters", *upd.CapacityLiters); err != nil {
			return nil, l.observe(OpUpdateContainer, err)
		}
	}
	if upd.CurrentLevel != nil {
		if err := checkScale("currentLevel", *upd.CurrentLevel); err != nil {
			return nil, l.observe(OpUpdateContainer, err)
		}
	}
	if upd.FuelType != nil && !upd.FuelType.Valid() {
		return nil, l.observe(OpUpdateContainer, &ValidationError{Field: "fuelType", Message: fmt.Sprintf("unknown fuel type %q", *upd.FuelType)})
	}

	var updated *Container
	err := l.store.WithTx(ctx, func(s Store) error {
		c, err := s.GetContainerForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContainerNotFound
		}

		if upd.Name != nil {
			c.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.CapacityLiters != nil {
			c.CapacityLiters = *upd.CapacityLiters
		}
		if upd.CurrentLevel != nil {
			delta := upd.CurrentLevel.Sub(c.CurrentLevel)
			c.InitialLevel = c.InitialLevel.Add(delta)
			c.CurrentLevel = *upd.CurrentLevel
		}
		if upd.FuelType != nil {
			c.FuelType = *upd.FuelType
		}
		if upd.Location != nil {
			c.Location = strings.TrimSpace(*upd.Location)
		}
		c.UpdatedAt = l.now()

		if err := s.UpdateContainer(ctx, c); err != nil {
			return fmt.Errorf("failed to update container: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, l.observe(OpUpdateContainer, err)
	}
	return updated, l.observe(OpUpdateContainer, nil)
}

// DeleteContainer deactivates a container. Its ledger rows are kept and
// its level is left as is.
func (l *Ledger) DeleteContainer(ctx context.Context, id int64) error {
	err := l.store.WithTx(ctx, func(s Store) error {
		c, err := s.GetContainerForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContainerNotFound
		}
		c.IsActive = false
		c.UpdatedAt = l.now()
		if err := s.UpdateContainer(ctx, c); err != nil {
			return fmt.Errorf("failed to delete container: %w", err)
		}
		return nil
	})
	return l.observe(OpDeleteContainer, err)
}

// GetContainer returns a container by ID, active or not.
func (l *Ledger) GetContainer(ctx context.Context, id int64) (*Container, error) {
	c, err := l.store.GetContainer(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrContainerNotFound
	}
	return c, nil
}

// ListContainers returns containers, newest first.
func (l *Ledger) ListContainers(ctx context.Context, activeOnly bool) ([]Container, error) {
	return l.store.ListContainers(ctx, activeOnly)
}

// =============================================================================
// ADDITIONS
// =============================================================================

// AddFuel records a refill and raises the container level by the same
// quantity. No capacity check is made.
func (l *Ledger) AddFuel(ctx context.Context, in AddFuelInput) (*Addition, error) {
	if !in.QuantityLiters.IsPositive() {
		return nil, l.observe(OpAddFuel, ErrInvalidQuantity)
	}
	if !in.PricePerLiter.IsPositive() {
		return nil, l.observe(OpAddFuel, ErrInvalidPrice)
	}
	if err := checkScale("quantityLiters", in.QuantityLiters); err != nil {
		return nil, l.observe(OpAddFuel, err)
	}
	if err := checkScale("pricePerLiter", in.PricePerLiter); err != nil {
		return nil, l.observe(OpAddFuel, err)
	}

	addedAt := in.AddedAt
	if addedAt.IsZero() {
		addedAt = l.now()
	}

	a := &Addition{
		ContainerID:    in.ContainerID,
		QuantityLiters: in.QuantityLiters,
		PricePerLiter:  in.PricePerLiter,
		TotalPrice:     in.QuantityLiters.Mul(in.PricePerLiter).Round(2),
		Supplier:       strings.TrimSpace(in.Supplier),
		ReceiptNumber:  strings.TrimSpace(in.ReceiptNumber),
		Notes:          strings.TrimSpace(in.Notes),
		AddedAt:        addedAt.UTC(),
		CreatedBy:      in.CreatedBy,
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		c, err := s.GetContainer(ctx, in.ContainerID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContainerNotFound
		}
		if err := s.InsertAddition(ctx, a); err != nil {
			return fmt.Errorf("failed to record addition: %w", err)
		}
		if err := s.AdjustLevel(ctx, c.ID, a.QuantityLiters); err != nil {
			return fmt.Errorf("failed to raise container level: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, l.observe(OpAddFuel, err)
	}
	return a, l.observe(OpAddFuel, nil)
}

// ListAdditions returns a container's refill history, newest first.
func (l *Ledger) ListAdditions(ctx context.Context, containerID int64, limit int) ([]Addition, error) {
	if _, err := l.GetContainer(ctx, containerID); err != nil {
		return nil, err
	}
	return l.store.ListAdditions(ctx, AdditionFilter{ContainerID: &containerID, Limit: limit})
}

// LastPrice returns the price of the most recent addition, or an invalid
// NullDecimal if the container was never refilled.
func (l *Ledger) LastPrice(ctx context.Context, containerID int64) (decimal.NullDecimal, error) {
	a, err := l.store.LatestAddition(ctx, containerID)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if a == nil {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(a.PricePerLiter), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// DispenseFuel issues fuel to a vehicle. The level check and decrement are
// a single conditional update, so concurrent dispenses cannot overdraw.
func (l *Ledger) DispenseFuel(ctx context.Context, in DispenseInput) (*Transaction, error) {
	if !in.QuantityLiters.IsPositive() {
		return nil, l.observe(OpDispenseFuel, ErrInvalidQuantity)
	}
	if err := checkScale("quantityLiters", in.QuantityLiters); err != nil {
		return nil, l.observe(OpDispenseFuel, err)
	}
	if in.OdometerReading != nil && *in.OdometerReading < 0 {
		return nil, l.observe(OpDispenseFuel, &ValidationError{Field: "odometerReading", Message: "must not be negative"})
	}

	at := in.TransactionAt
	if at.IsZero() {
		at = l.now()
	}

	var tx *Transaction
	err := l.store.WithTx(ctx, func(s Store) error {
		c, err := s.GetContainer(ctx, in.ContainerID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrContainerNotFound
		}
		v, err := s.GetVehicle(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrVehicleNotFound
		}
		if in.SectorID != nil {
			sec, err := s.GetSector(ctx, *in.SectorID)
			if err != nil {
				return err
			}
			if sec == nil {
				return ErrSectorNotFound
			}
		}

		ok, err := s.DecrementLevel(ctx, c.ID, in.QuantityLiters)
		if err != nil {
			return fmt.Errorf("failed to lower container level: %w", err)
		}
		if !ok {
			return &InsufficientFuelError{
				ContainerID: c.ID,
				Available:   c.CurrentLevel,
				Requested:   in.QuantityLiters,
			}
		}

		last, err := s.LatestAddition(ctx, c.ID)
		if err != nil {
			return err
		}

		t := &Transaction{
			ContainerID:     c.ID,
			VehicleID:       v.ID,
			SectorID:        in.SectorID,
			QuantityLiters:  in.QuantityLiters,
			OdometerReading: in.OdometerReading,
			OperatorName:    strings.TrimSpace(in.OperatorName),
			Notes:           strings.TrimSpace(in.Notes),
			TransactionAt:   at.UTC(),
			CreatedBy:       in.CreatedBy,
		}
		if last != nil {
			t.PricePerLiter = decimal.NewNullDecimal(last.PricePerLiter)
			t.TotalPrice = decimal.NewNullDecimal(in.QuantityLiters.Mul(last.PricePerLiter).Round(2))
		}

		if err := s.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		tx = t
		return nil
	})
	if err != nil {
		return nil, l.observe(OpDispenseFuel, err)
	}
	return tx, l.observe(OpDispenseFuel, nil)
}

// DeleteTransaction removes a dispense and credits its quantity back to
// the container, regardless of capacity. The removed row is returned.
func (l *Ledger) DeleteTransaction(ctx context.Context, id int64) (*Transaction, error) {
	var deleted *Transaction
	err := l.store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTransactionNotFound
		}
		if err := s.AdjustLevel(ctx, t.ContainerID, t.QuantityLiters); err != nil {
			return fmt.Errorf("failed to restore container level: %w", err)
		}
		if err := s.DeleteTransaction(ctx, t.ID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, l.observe(OpDeleteTransaction, err)
	}
	return deleted, l.observe(OpDeleteTransaction, nil)
}

// ListTransactions returns dispenses matching f, newest first, joined with
// container, vehicle and sector names.
func (l *Ledger) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionView, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	txs, err := l.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	containers, err := l.store.ListContainers(ctx, false)
	if err != nil {
		return nil, err
	}
	vehicles, err := l.store.ListVehicles(ctx, false)
	if err != nil {
		return nil, err
	}
	sectors, err := l.store.ListSectors(ctx, false)
	if err != nil {
		return nil, err
	}

	containerNames := make(map[int64]string, len(containers))
	for _, c := range containers {
		containerNames[c.ID] = c.Name
	}
	vehicleByID := make(map[int64]Vehicle, len(vehicles))
	for _, v := range vehicles {
		vehicleByID[v.ID] = v
	}
	sectorNames := make(map[int64]string, len(sectors))
	for _, s := range sectors {
		sectorNames[s.ID] = s.Name
	}

	views := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		view := TransactionView{
			Transaction:   t,
			ContainerName: containerNames[t.ContainerID],
		}
		if v, ok := vehicleByID[t.VehicleID]; ok {
			view.VehicleName = v.Name
			view.VehicleRegistration = v.Registration
		}
		if t.SectorID != nil {
			view.SectorName = sectorNames[*t.SectorID]
		}
		views = append(views, view)
	}
	return views, nil
}
