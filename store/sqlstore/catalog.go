package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// VEHICLES
// =============================================================================

const vehicleColumns = `id, name, registration, vehicle_type_id, sector_id, fuel_type,
	notes, is_active, created_at, updated_at`

func (q *queries) InsertVehicle(ctx context.Context, v *fuel.Vehicle) error {
	err := q.queryRow(ctx, `
		INSERT INTO vehicles
		(name, registration, vehicle_type_id, sector_id, fuel_type, notes, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		v.Name, v.Registration, nullInt64(v.VehicleTypeID), nullInt64(v.SectorID),
		string(v.FuelType), v.Notes, v.IsActive, v.CreatedAt.UTC(), v.UpdatedAt.UTC(),
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

func (q *queries) GetVehicle(ctx context.Context, id int64) (*fuel.Vehicle, error) {
	row := q.queryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &v, nil
}

func (q *queries) ListVehicles(ctx context.Context, activeOnly bool) ([]fuel.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	out := []fuel.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *queries) UpdateVehicle(ctx context.Context, v *fuel.Vehicle) error {
	res, err := q.exec(ctx, `
		UPDATE vehicles
		SET name = ?, registration = ?, vehicle_type_id = ?, sector_id = ?, fuel_type = ?,
		    notes = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		v.Name, v.Registration, nullInt64(v.VehicleTypeID), nullInt64(v.SectorID),
		string(v.FuelType), v.Notes, v.IsActive, v.UpdatedAt.UTC(), v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	return expectOne(res, fuel.ErrVehicleNotFound)
}

func scanVehicle(s scanner) (fuel.Vehicle, error) {
	var (
		v                fuel.Vehicle
		typeID, sectorID sql.NullInt64
		fuelType         string
	)
	err := s.Scan(&v.ID, &v.Name, &v.Registration, &typeID, &sectorID, &fuelType,
		&v.Notes, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	v.VehicleTypeID = int64Ptr(typeID)
	v.SectorID = int64Ptr(sectorID)
	v.FuelType = fuel.FuelType(fuelType)
	return v, err
}

// =============================================================================
// VEHICLE TYPES
// =============================================================================

const vehicleTypeColumns = `id, name, icon, is_system, is_active, created_at`

func (q *queries) InsertVehicleType(ctx context.Context, vt *fuel.VehicleType) error {
	err := q.queryRow(ctx, `
		INSERT INTO vehicle_types (name, icon, is_system, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		vt.Name, vt.Icon, vt.IsSystem, vt.IsActive, vt.CreatedAt.UTC(),
	).Scan(&vt.ID)
	if err != nil {
		return fmt.Errorf("failed to insert vehicle type: %w", err)
	}
	return nil
}

func (q *queries) GetVehicleType(ctx context.Context, id int64) (*fuel.VehicleType, error) {
	row := q.queryRow(ctx, `SELECT `+vehicleTypeColumns+` FROM vehicle_types WHERE id = ?`, id)
	var vt fuel.VehicleType
	err := row.Scan(&vt.ID, &vt.Name, &vt.Icon, &vt.IsSystem, &vt.IsActive, &vt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle type: %w", err)
	}
	return &vt, nil
}

func (q *queries) ListVehicleTypes(ctx context.Context, activeOnly bool) ([]fuel.VehicleType, error) {
	query := `SELECT ` + vehicleTypeColumns + ` FROM vehicle_types`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle types: %w", err)
	}
	defer rows.Close()

	out := []fuel.VehicleType{}
	for rows.Next() {
		var vt fuel.VehicleType
		if err := rows.Scan(&vt.ID, &vt.Name, &vt.Icon, &vt.IsSystem, &vt.IsActive, &vt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle type: %w", err)
		}
		out = append(out, vt)
	}
	return out, rows.Err()
}

func (q *queries) UpdateVehicleType(ctx context.Context, vt *fuel.VehicleType) error {
	res, err := q.exec(ctx,
		`UPDATE vehicle_types SET name = ?, icon = ?, is_system = ?, is_active = ? WHERE id = ?`,
		vt.Name, vt.Icon, vt.IsSystem, vt.IsActive, vt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle type: %w", err)
	}
	return expectOne(res, fuel.ErrVehicleTypeNotFound)
}

// =============================================================================
// SECTORS
// =============================================================================

const sectorColumns = `id, name, description, is_active, created_at`

func (q *queries) InsertSector(ctx context.Context, s *fuel.Sector) error {
	err := q.queryRow(ctx, `
		INSERT INTO sectors (name, description, is_active, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		s.Name, s.Description, s.IsActive, s.CreatedAt.UTC(),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert sector: %w", err)
	}
	return nil
}

func (q *queries) GetSector(ctx context.Context, id int64) (*fuel.Sector, error) {
	row := q.queryRow(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE id = ?`, id)
	var s fuel.Sector
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector: %w", err)
	}
	return &s, nil
}

func (q *queries) ListSectors(ctx context.Context, activeOnly bool) ([]fuel.Sector, error) {
	query := `SELECT ` + sectorColumns + ` FROM sectors`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	defer rows.Close()

	out := []fuel.Sector{}
	for rows.Next() {
		var s fuel.Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *queries) UpdateSector(ctx context.Context, s *fuel.Sector) error {
	res, err := q.exec(ctx,
		`UPDATE sectors SET name = ?, description = ?, is_active = ? WHERE id = ?`,
		s.Name, s.Description, s.IsActive, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sector: %w", err)
	}
	return expectOne(res, fuel.ErrSectorNotFound)
}
