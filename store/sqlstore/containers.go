package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// CONTAINER STORE (fuel.ContainerStore)
// =============================================================================

const containerColumns = `id, name, capacity_liters, current_level, initial_level, fuel_type,
	location, is_active, created_at, updated_at`

func (q *queries) InsertContainer(ctx context.Context, c *fuel.Container) error {
	err := q.queryRow(ctx, `
		INSERT INTO fuel_containers
		(name, capacity_liters, current_level, initial_level, fuel_type, location, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		c.Name, c.CapacityLiters, c.CurrentLevel, c.InitialLevel, string(c.FuelType),
		c.Location, c.IsActive, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert container: %w", err)
	}
	return nil
}

func (q *queries) GetContainer(ctx context.Context, id int64) (*fuel.Container, error) {
	return q.getContainer(ctx, id, "")
}

func (q *queries) GetContainerForUpdate(ctx context.Context, id int64) (*fuel.Container, error) {
	return q.getContainer(ctx, id, q.dialect.lockClause())
}

func (q *queries) getContainer(ctx context.Context, id int64, lock string) (*fuel.Container, error) {
	row := q.queryRow(ctx, `SELECT `+containerColumns+` FROM fuel_containers WHERE id = ?`+lock, id)
	c, err := scanContainer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container: %w", err)
	}
	return &c, nil
}

func (q *queries) ListContainers(ctx context.Context, activeOnly bool) ([]fuel.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM fuel_containers`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	out := []fuel.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan container: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *queries) UpdateContainer(ctx context.Context, c *fuel.Container) error {
	res, err := q.exec(ctx, `
		UPDATE fuel_containers
		SET name = ?, capacity_liters = ?, current_level = ?, initial_level = ?,
		    fuel_type = ?, location = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.CapacityLiters, c.CurrentLevel, c.InitialLevel,
		string(c.FuelType), c.Location, c.IsActive, c.UpdatedAt.UTC(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update container: %w", err)
	}
	return expectOne(res, fuel.ErrContainerNotFound)
}

func (q *queries) AdjustLevel(ctx context.Context, id int64, delta decimal.Decimal) error {
	res, err := q.exec(ctx,
		`UPDATE fuel_containers SET current_level = current_level + ? WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust level: %w", err)
	}
	return expectOne(res, fuel.ErrContainerNotFound)
}

func (q *queries) DecrementLevel(ctx context.Context, id int64, qty decimal.Decimal) (bool, error) {
	res, err := q.exec(ctx,
		`UPDATE fuel_containers SET current_level = current_level - ? WHERE id = ? AND current_level >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return false, fmt.Errorf("failed to decrement level: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContainer(s scanner) (fuel.Container, error) {
	var (
		c        fuel.Container
		fuelType string
	)
	err := s.Scan(&c.ID, &c.Name, &c.CapacityLiters, &c.CurrentLevel, &c.InitialLevel,
		&fuelType, &c.Location, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	c.FuelType = fuel.FuelType(fuelType)
	return c, err
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
