package fuel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FLEET - Vehicles, vehicle types and sectors
// =============================================================================

// Fleet manages the catalog entities that transactions reference. All
// deletes are soft.
type Fleet struct {
	store Store
	now   func() time.Time
}

// NewFleet creates a catalog service.
func NewFleet(store Store) *Fleet {
	return &Fleet{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// VehicleInput is the writable part of a vehicle.
type VehicleInput struct {
	Name          string
	Registration  string
	VehicleTypeID *int64
	SectorID      *int64
	FuelType      FuelType
	Notes         string
}

// ListVehicles returns vehicles ordered by name.
func (f *Fleet) ListVehicles(ctx context.Context, activeOnly bool) ([]Vehicle, error) {
	vs, err := f.store.ListVehicles(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Name < vs[j].Name })
	return vs, nil
}

// GetVehicle returns a vehicle by ID.
func (f *Fleet) GetVehicle(ctx context.Context, id int64) (*Vehicle, error) {
	v, err := f.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVehicleNotFound
	}
	return v, nil
}

// CreateVehicle validates and stores a new vehicle.
func (f *Fleet) CreateVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error) {
	v := &Vehicle{IsActive: true}
	if err := f.applyVehicle(ctx, v, in); err != nil {
		return nil, err
	}
	now := f.now()
	v.CreatedAt, v.UpdatedAt = now, now
	if err := f.store.InsertVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return v, nil
}

// UpdateVehicle replaces a vehicle's writable fields.
func (f *Fleet) UpdateVehicle(ctx context.Context, id int64, in VehicleInput) (*Vehicle, error) {
	v, err := f.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.applyVehicle(ctx, v, in); err != nil {
		return nil, err
	}
	v.UpdatedAt = f.now()
	if err := f.store.UpdateVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return v, nil
}

// DeleteVehicle deactivates a vehicle.
func (f *Fleet) DeleteVehicle(ctx context.Context, id int64) error {
	v, err := f.GetVehicle(ctx, id)
	if err != nil {
		return err
	}
	v.IsActive = false
	v.UpdatedAt = f.now()
	if err := f.store.UpdateVehicle(ctx, v); err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return nil
}

func (f *Fleet) applyVehicle(ctx context.Context, v *Vehicle, in VehicleInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	fuelType := in.FuelType
	if fuelType == "" {
		fuelType = FuelDiesel
	}
	if !fuelType.Valid() {
		return &ValidationError{Field: "fuelType", Message: fmt.Sprintf("unknown fuel type %q", fuelType)}
	}
	if in.VehicleTypeID != nil {
		vt, err := f.store.GetVehicleType(ctx, *in.VehicleTypeID)
		if err != nil {
			return err
		}
		if vt == nil {
			return ErrVehicleTypeNotFound
		}
	}
	if in.SectorID != nil {
		s, err := f.store.GetSector(ctx, *in.SectorID)
		if err != nil {
			return err
		}
		if s == nil {
			return ErrSectorNotFound
		}
	}

	v.Name = name
	v.Registration = strings.TrimSpace(in.Registration)
	v.VehicleTypeID = in.VehicleTypeID
	v.SectorID = in.SectorID
	v.FuelType = fuelType
	v.Notes = strings.TrimSpace(in.Notes)
	return nil
}

// =============================================================================
// VEHICLE TYPES
// =============================================================================

// ListVehicleTypes returns vehicle types ordered by name.
func (f *Fleet) ListVehicleTypes(ctx context.Context, activeOnly bool) ([]VehicleType, error) {
	vts, err := f.store.ListVehicleTypes(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(vts, func(i, j int) bool { return vts[i].Name < vts[j].Name })
	return vts, nil
}

// CreateVehicleType stores a user-defined vehicle type.
func (f *Fleet) CreateVehicleType(ctx context.Context, name, icon string) (*VehicleType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	vt := &VehicleType{
		Name:      name,
		Icon:      strings.TrimSpace(icon),
		IsActive:  true,
		CreatedAt: f.now(),
	}
	if err := f.store.InsertVehicleType(ctx, vt); err != nil {
		return nil, fmt.Errorf("failed to create vehicle type: %w", err)
	}
	return vt, nil
}

// DeleteVehicleType deactivates a vehicle type. System types are refused.
func (f *Fleet) DeleteVehicleType(ctx context.Context, id int64) error {
	vt, err := f.store.GetVehicleType(ctx, id)
	if err != nil {
		return err
	}
	if vt == nil {
		return ErrVehicleTypeNotFound
	}
	if vt.IsSystem {
		return ErrSystemVehicleType
	}
	vt.IsActive = false
	if err := f.store.UpdateVehicleType(ctx, vt); err != nil {
		return fmt.Errorf("failed to delete vehicle type: %w", err)
	}
	return nil
}

// =============================================================================
// SECTORS
// =============================================================================

// ListSectors returns sectors ordered by name.
func (f *Fleet) ListSectors(ctx context.Context, activeOnly bool) ([]Sector, error) {
	ss, err := f.store.ListSectors(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].Name < ss[j].Name })
	return ss, nil
}

// GetSector returns a sector by ID.
func (f *Fleet) GetSector(ctx context.Context, id int64) (*Sector, error) {
	s, err := f.store.GetSector(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSectorNotFound
	}
	return s, nil
}

// CreateSector stores a new sector.
func (f *Fleet) CreateSector(ctx context.Context, name, description string) (*Sector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	s := &Sector{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   f.now(),
	}
	if err := f.store.InsertSector(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create sector: %w", err)
	}
	return s, nil
}

// UpdateSector renames or re-describes a sector.
func (f *Fleet) UpdateSector(ctx context.Context, id int64, name, description string) (*Sector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	s, err := f.GetSector(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Name = name
	s.Description = strings.TrimSpace(description)
	if err := f.store.UpdateSector(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update sector: %w", err)
	}
	return s, nil
}

// DeleteSector deactivates a sector.
func (f *Fleet) DeleteSector(ctx context.Context, id int64) error {
	s, err := f.GetSector(ctx, id)
	if err != nil {
		return err
	}
	s.IsActive = false
	if err := f.store.UpdateSector(ctx, s); err != nil {
		return fmt.Errorf("failed to delete sector: %w", err)
	}
	return nil
}
