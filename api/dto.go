/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the fuel domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Requests carry quantities and prices as decimal.Decimal, which accepts
  both JSON numbers and quoted strings. Responses use float64 rounded
  from the decimal values; the database keeps the exact figures.

TYPES:
  Containers:   ContainerDTO, CreateContainerRequest, UpdateContainerRequest
  Ledger:       AdditionDTO, AddFuelRequest, TransactionDTO, DispenseRequest
  Catalog:      VehicleDTO, VehicleRequest, VehicleTypeDTO, SectorDTO, ...
  Reports:      VehicleReportDTO, SectorReportDTO, ContainerReportDTO,
                TimeReportDTO, CostSummaryDTO, DashboardDTO
  Audit:        BalanceCheckDTO
  Auth:         LoginRequest, LoginResponse

VALIDATION:
  Validation is done in the fuel package, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ../fuel/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// CONTAINERS
// =============================================================================

// ContainerDTO represents a container in API responses.
type ContainerDTO struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CapacityLiters float64   `json:"capacity_liters"`
	CurrentLevel   float64   `json:"current_level"`
	InitialLevel   float64   `json:"initial_level"`
	FillPercent    float64   `json:"fill_percent"`
	FuelType       string    `json:"fuel_type"`
	Location       string    `json:"location,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateContainerRequest is the request body for creating a container.
type CreateContainerRequest struct {
	Name           string          `json:"name"`
	CapacityLiters decimal.Decimal `json:"capacity_liters"`
	CurrentLevel   decimal.Decimal `json:"current_level"`
	FuelType       string          `json:"fuel_type"`
	Location       string          `json:"location"`
}

// UpdateContainerRequest is a partial update; omitted fields are unchanged.
type UpdateContainerRequest struct {
	Name           *string          `json:"name"`
	CapacityLiters *decimal.Decimal `json:"capacity_liters"`
	CurrentLevel   *decimal.Decimal `json:"current_level"`
	FuelType       *string          `json:"fuel_type"`
	Location       *string          `json:"location"`
}

// =============================================================================
// LEDGER
// =============================================================================

// AdditionDTO represents a refill.
type AdditionDTO struct {
	ID             int64     `json:"id"`
	ContainerID    int64     `json:"container_id"`
	QuantityLiters float64   `json:"quantity_liters"`
	PricePerLiter  float64   `json:"price_per_liter"`
	TotalPrice     float64   `json:"total_price"`
	Supplier       string    `json:"supplier,omitempty"`
	ReceiptNumber  string    `json:"receipt_number,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	AddedAt        time.Time `json:"added_at"`
	CreatedBy      *int64    `json:"created_by,omitempty"`
}

// AddFuelRequest is the request body for a refill.
type AddFuelRequest struct {
	QuantityLiters decimal.Decimal `json:"quantity_liters"`
	PricePerLiter  decimal.Decimal `json:"price_per_liter"`
	Supplier       string          `json:"supplier"`
	ReceiptNumber  string          `json:"receipt_number"`
	Notes          string          `json:"notes"`
	AddedAt        *time.Time      `json:"added_at"`
}

// TransactionDTO represents a dispense. Price fields are null when the
// container had never been refilled at dispense time.
type TransactionDTO struct {
	ID                  int64     `json:"id"`
	ContainerID         int64     `json:"container_id"`
	ContainerName       string    `json:"container_name,omitempty"`
	VehicleID           int64     `json:"vehicle_id"`
	VehicleName         string    `json:"vehicle_name,omitempty"`
	VehicleRegistration string    `json:"vehicle_registration,omitempty"`
	SectorID            *int64    `json:"sector_id"`
	SectorName          string    `json:"sector_name,omitempty"`
	QuantityLiters      float64   `json:"quantity_liters"`
	PricePerLiter       *float64  `json:"price_per_liter"`
	TotalPrice          *float64  `json:"total_price"`
	OdometerReading     *int64    `json:"odometer_reading,omitempty"`
	OperatorName        string    `json:"operator_name,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	TransactionAt       time.Time `json:"transaction_at"`
	CreatedBy           *int64    `json:"created_by,omitempty"`
}

// DispenseRequest is the request body for a dispense.
type DispenseRequest struct {
	ContainerID     int64           `json:"container_id"`
	VehicleID       int64           `json:"vehicle_id"`
	SectorID        *int64          `json:"sector_id"`
	QuantityLiters  decimal.Decimal `json:"quantity_liters"`
	OdometerReading *int64          `json:"odometer_reading"`
	OperatorName    string          `json:"operator_name"`
	Notes           string          `json:"notes"`
	TransactionAt   *time.Time      `json:"transaction_at"`
}

// LastPriceDTO is the most recent refill price of a container.
type LastPriceDTO struct {
	ContainerID   int64    `json:"container_id"`
	PricePerLiter *float64 `json:"price_per_liter"`
}

// =============================================================================
// CATALOG
// =============================================================================

// VehicleDTO represents a vehicle.
type VehicleDTO struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Registration  string    `json:"registration,omitempty"`
	VehicleTypeID *int64    `json:"vehicle_type_id"`
	SectorID      *int64    `json:"sector_id"`
	FuelType      string    `json:"fuel_type"`
	Notes         string    `json:"notes,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VehicleRequest is the request body for creating or updating a vehicle.
type VehicleRequest struct {
	Name          string `json:"name"`
	Registration  string `json:"registration"`
	VehicleTypeID *int64 `json:"vehicle_type_id"`
	SectorID      *int64 `json:"sector_id"`
	FuelType      string `json:"fuel_type"`
	Notes         string `json:"notes"`
}

// VehicleTypeDTO represents a vehicle type.
type VehicleTypeDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	IsSystem bool   `json:"is_system"`
	IsActive bool   `json:"is_active"`
}

// VehicleTypeRequest is the request body for creating a vehicle type.
type VehicleTypeRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// SectorDTO represents a sector.
type SectorDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// SectorRequest is the request body for creating or updating a sector.
type SectorRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// REPORTS
// =============================================================================

// VehicleReportDTO is one by-vehicle row.
type VehicleReportDTO struct {
	VehicleID    int64   `json:"vehicle_id"`
	VehicleName  string  `json:"vehicle_name"`
	Registration string  `json:"registration,omitempty"`
	TotalLiters  float64 `json:"total_liters"`
	TotalPrice   float64 `json:"total_price"`
	Count        int     `json:"transaction_count"`
}

// SectorReportDTO is one by-sector row.
type SectorReportDTO struct {
	SectorID    *int64  `json:"sector_id"`
	SectorName  string  `json:"sector_name"`
	TotalLiters float64 `json:"total_liters"`
	TotalPrice  float64 `json:"total_price"`
	Count       int     `json:"transaction_count"`
}

// ContainerReportDTO is one by-container row.
type ContainerReportDTO struct {
	ContainerID     int64   `json:"container_id"`
	ContainerName   string  `json:"container_name"`
	CurrentLevel    float64 `json:"current_level"`
	DispensedLiters float64 `json:"dispensed_liters"`
	DispensedPrice  float64 `json:"dispensed_price"`
	AddedLiters     float64 `json:"added_liters"`
	AddedPrice      float64 `json:"added_price"`
}

// BucketDTO is one time bucket.
type BucketDTO struct {
	Period string  `json:"period"`
	Liters float64 `json:"liters"`
	Price  float64 `json:"price"`
	Count  int     `json:"count"`
}

// TimeReportDTO is the time-bucketed report.
type TimeReportDTO struct {
	Period           string      `json:"period"`
	Transactions     []BucketDTO `json:"transactions"`
	Additions        []BucketDTO `json:"additions"`
	AvgPricePerLiter float64     `json:"avg_price_per_liter"`
}

// CostSummaryDTO is the procurement summary.
type CostSummaryDTO struct {
	TotalLiters      float64 `json:"total_liters"`
	TotalPrice       float64 `json:"total_price"`
	AvgPricePerLiter float64 `json:"avg_price_per_liter"`
}

// DashboardDTO is the landing-page summary.
type DashboardDTO struct {
	ContainersCount        int     `json:"containers_count"`
	TotalFuel              float64 `json:"total_fuel"`
	TotalCapacity          float64 `json:"total_capacity"`
	MonthlyDispensedLiters float64 `json:"monthly_dispensed_liters"`
	MonthlyDispensedPrice  float64 `json:"monthly_dispensed_price"`
	MonthlyTransactions    int     `json:"monthly_transactions"`
	MonthlyAddedLiters     float64 `json:"monthly_added_liters"`
	MonthlyAddedPrice      float64 `json:"monthly_added_price"`
}

// BalanceCheckDTO is an invariant audit result.
type BalanceCheckDTO struct {
	ContainerID   int64   `json:"container_id"`
	ContainerName string  `json:"container_name"`
	CurrentLevel  float64 `json:"current_level"`
	InitialLevel  float64 `json:"initial_level"`
	Added         float64 `json:"added"`
	Dispensed     float64 `json:"dispensed"`
	Expected      float64 `json:"expected"`
	Drift         float64 `json:"drift"`
	Consistent    bool    `json:"consistent"`
}

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toContainerDTO(c fuel.Container) ContainerDTO {
	return ContainerDTO{
		ID:             c.ID,
		Name:           c.Name,
		CapacityLiters: c.CapacityLiters.InexactFloat64(),
		CurrentLevel:   c.CurrentLevel.InexactFloat64(),
		InitialLevel:   c.InitialLevel.InexactFloat64(),
		FillPercent:    c.FillPercent().InexactFloat64(),
		FuelType:       string(c.FuelType),
		Location:       c.Location,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toAdditionDTO(a fuel.Addition) AdditionDTO {
	return AdditionDTO{
		ID:             a.ID,
		ContainerID:    a.ContainerID,
		QuantityLiters: a.QuantityLiters.InexactFloat64(),
		PricePerLiter:  a.PricePerLiter.InexactFloat64(),
		TotalPrice:     a.TotalPrice.InexactFloat64(),
		Supplier:       a.Supplier,
		ReceiptNumber:  a.ReceiptNumber,
		Notes:          a.Notes,
		AddedAt:        a.AddedAt,
		CreatedBy:      a.CreatedBy,
	}
}

func toTransactionDTO(v fuel.TransactionView) TransactionDTO {
	t := v.Transaction
	return TransactionDTO{
		ID:                  t.ID,
		ContainerID:         t.ContainerID,
		ContainerName:       v.ContainerName,
		VehicleID:           t.VehicleID,
		VehicleName:         v.VehicleName,
		VehicleRegistration: v.VehicleRegistration,
		SectorID:            t.SectorID,
		SectorName:          v.SectorName,
		QuantityLiters:      t.QuantityLiters.InexactFloat64(),
		PricePerLiter:       nullFloat(t.PricePerLiter),
		TotalPrice:          nullFloat(t.TotalPrice),
		OdometerReading:     t.OdometerReading,
		OperatorName:        t.OperatorName,
		Notes:               t.Notes,
		TransactionAt:       t.TransactionAt,
		CreatedBy:           t.CreatedBy,
	}
}

func toVehicleDTO(v fuel.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:            v.ID,
		Name:          v.Name,
		Registration:  v.Registration,
		VehicleTypeID: v.VehicleTypeID,
		SectorID:      v.SectorID,
		FuelType:      string(v.FuelType),
		Notes:         v.Notes,
		IsActive:      v.IsActive,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func toVehicleTypeDTO(vt fuel.VehicleType) VehicleTypeDTO {
	return VehicleTypeDTO{ID: vt.ID, Name: vt.Name, Icon: vt.Icon, IsSystem: vt.IsSystem, IsActive: vt.IsActive}
}

func toSectorDTO(s fuel.Sector) SectorDTO {
	return SectorDTO{ID: s.ID, Name: s.Name, Description: s.Description, IsActive: s.IsActive, CreatedAt: s.CreatedAt}
}

func toBucketDTOs(in []fuel.BucketTotal) []BucketDTO {
	out := make([]BucketDTO, 0, len(in))
	for _, b := range in {
		out = append(out, BucketDTO{Period: b.Period, Liters: b.Liters.InexactFloat64(), Price: b.Price.InexactFloat64(), Count: b.Count})
	}
	return out
}

func toBalanceCheckDTO(b fuel.BalanceCheck) BalanceCheckDTO {
	return BalanceCheckDTO{
		ContainerID:   b.ContainerID,
		ContainerName: b.ContainerName,
		CurrentLevel:  b.CurrentLevel.InexactFloat64(),
		InitialLevel:  b.InitialLevel.InexactFloat64(),
		Added:         b.Added.InexactFloat64(),
		Dispensed:     b.Dispensed.InexactFloat64(),
		Expected:      b.Expected.InexactFloat64(),
		Drift:         b.Drift.InexactFloat64(),
		Consistent:    b.Consistent(),
	}
}

func nullFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
