/*
store.go - Persistence interfaces for the fuel ledger

PURPOSE:
  Defines what the ledger, catalog and reporter need from storage. Two
  implementations exist:
  - fuel/store:      in-memory, snapshot/rollback transactions
  - store/sqlstore:  SQLite or PostgreSQL through database/sql

LOOKUPS:
  Get* methods return (nil, nil) when the row does not exist. Services
  translate that into the matching Err*NotFound sentinel.

ATOMICITY:
  TxStore.WithTx runs fn against a Store bound to one transaction. If fn
  returns an error nothing it wrote is kept.

COMPARE-AND-DECREMENT:
  DecrementLevel must check and subtract in one step:

    UPDATE fuel_containers SET current_level = current_level - q
    WHERE id = ? AND current_level >= q

  It returns false (and changes nothing) when the level is too low.
  This is what keeps concurrent dispenses from overdrawing a container.

SEE ALSO:
  - ledger.go: Uses TxStore
  - store/memory.go: In-memory implementation
  - ../store/sqlstore: SQL implementation
*/
package fuel

import (
	"context"

	"github.com/shopspring/decimal"
)

// ContainerStore persists containers and their levels.
type ContainerStore interface {
	InsertContainer(ctx context.Context, c *Container) error
	GetContainer(ctx context.Context, id int64) (*Container, error)

	// GetContainerForUpdate reads a container and locks its row until the
	// surrounding transaction ends. Call it inside WithTx.
	GetContainerForUpdate(ctx context.Context, id int64) (*Container, error)
	ListContainers(ctx context.Context, activeOnly bool) ([]Container, error)
	UpdateContainer(ctx context.Context, c *Container) error

	// AdjustLevel adds delta to the current level unconditionally.
	AdjustLevel(ctx context.Context, id int64, delta decimal.Decimal) error

	// DecrementLevel subtracts qty only if the level covers it.
	DecrementLevel(ctx context.Context, id int64, qty decimal.Decimal) (bool, error)
}

// LedgerStore persists additions and transactions.
type LedgerStore interface {
	InsertAddition(ctx context.Context, a *Addition) error
	LatestAddition(ctx context.Context, containerID int64) (*Addition, error)
	ListAdditions(ctx context.Context, f AdditionFilter) ([]Addition, error)

	InsertTransaction(ctx context.Context, t *Transaction) error
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
}

// CatalogStore persists vehicles, vehicle types and sectors.
type CatalogStore interface {
	InsertVehicle(ctx context.Context, v *Vehicle) error
	GetVehicle(ctx context.Context, id int64) (*Vehicle, error)
	ListVehicles(ctx context.Context, activeOnly bool) ([]Vehicle, error)
	UpdateVehicle(ctx context.Context, v *Vehicle) error

	InsertVehicleType(ctx context.Context, vt *VehicleType) error
	GetVehicleType(ctx context.Context, id int64) (*VehicleType, error)
	ListVehicleTypes(ctx context.Context, activeOnly bool) ([]VehicleType, error)
	UpdateVehicleType(ctx context.Context, vt *VehicleType) error

	InsertSector(ctx context.Context, s *Sector) error
	GetSector(ctx context.Context, id int64) (*Sector, error)
	ListSectors(ctx context.Context, activeOnly bool) ([]Sector, error)
	UpdateSector(ctx context.Context, s *Sector) error
}

// Store is the full persistence surface.
type Store interface {
	ContainerStore
	LedgerStore
	CatalogStore
}

// TxStore extends Store with transaction support.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
