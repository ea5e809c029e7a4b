package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// ADDITIONS (fuel.LedgerStore)
// =============================================================================

const additionColumns = `id, container_id, quantity, price_per_liter, total_price,
	supplier, receipt_number, notes, added_at, created_by`

func (q *queries) InsertAddition(ctx context.Context, a *fuel.Addition) error {
	err := q.queryRow(ctx, `
		INSERT INTO fuel_additions
		(container_id, quantity, price_per_liter, total_price, supplier, receipt_number, notes, added_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		a.ContainerID, a.QuantityLiters, a.PricePerLiter, a.TotalPrice,
		a.Supplier, a.ReceiptNumber, a.Notes, a.AddedAt.UTC(), nullInt64(a.CreatedBy),
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert addition: %w", err)
	}
	return nil
}

func (q *queries) LatestAddition(ctx context.Context, containerID int64) (*fuel.Addition, error) {
	row := q.queryRow(ctx, `
		SELECT `+additionColumns+` FROM fuel_additions
		WHERE container_id = ?
		ORDER BY added_at DESC, id DESC
		LIMIT 1`, containerID)
	a, err := scanAddition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest addition: %w", err)
	}
	return &a, nil
}

func (q *queries) ListAdditions(ctx context.Context, f fuel.AdditionFilter) ([]fuel.Addition, error) {
	var (
		where []string
		args  []any
	)
	if f.ContainerID != nil {
		where = append(where, "container_id = ?")
		args = append(args, *f.ContainerID)
	}
	if f.Range != nil {
		where = append(where, "added_at >= ?", "added_at <= ?")
		args = append(args, f.Range.Start.UTC(), f.Range.End.UTC())
	}

	query := `SELECT ` + additionColumns + ` FROM fuel_additions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY added_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list additions: %w", err)
	}
	defer rows.Close()

	out := []fuel.Addition{}
	for rows.Next() {
		a, err := scanAddition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan addition: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAddition(s scanner) (fuel.Addition, error) {
	var (
		a         fuel.Addition
		createdBy sql.NullInt64
	)
	err := s.Scan(&a.ID, &a.ContainerID, &a.QuantityLiters, &a.PricePerLiter, &a.TotalPrice,
		&a.Supplier, &a.ReceiptNumber, &a.Notes, &a.AddedAt, &createdBy)
	a.CreatedBy = int64Ptr(createdBy)
	return a, err
}

// =============================================================================
// TRANSACTIONS (fuel.LedgerStore)
// =============================================================================

const transactionColumns = `id, container_id, vehicle_id, sector_id, quantity, price_per_liter,
	total_price, odometer_reading, operator_name, notes, transaction_at, created_by`

func (q *queries) InsertTransaction(ctx context.Context, t *fuel.Transaction) error {
	err := q.queryRow(ctx, `
		INSERT INTO fuel_transactions
		(container_id, vehicle_id, sector_id, quantity, price_per_liter, total_price,
		 odometer_reading, operator_name, notes, transaction_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		t.ContainerID, t.VehicleID, nullInt64(t.SectorID), t.QuantityLiters,
		t.PricePerLiter, t.TotalPrice, nullInt64(t.OdometerReading),
		t.OperatorName, t.Notes, t.TransactionAt.UTC(), nullInt64(t.CreatedBy),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (q *queries) GetTransaction(ctx context.Context, id int64) (*fuel.Transaction, error) {
	row := q.queryRow(ctx, `SELECT `+transactionColumns+` FROM fuel_transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

func (q *queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, `DELETE FROM fuel_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOne(res, fuel.ErrTransactionNotFound)
}

func (q *queries) ListTransactions(ctx context.Context, f fuel.TransactionFilter) ([]fuel.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.ContainerID != nil {
		where = append(where, "container_id = ?")
		args = append(args, *f.ContainerID)
	}
	if f.VehicleID != nil {
		where = append(where, "vehicle_id = ?")
		args = append(args, *f.VehicleID)
	}
	if f.Range != nil {
		where = append(where, "transaction_at >= ?", "transaction_at <= ?")
		args = append(args, f.Range.Start.UTC(), f.Range.End.UTC())
	}

	query := `SELECT ` + transactionColumns + ` FROM fuel_transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY transaction_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []fuel.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(s scanner) (fuel.Transaction, error) {
	var (
		t                             fuel.Transaction
		sectorID, odometer, createdBy sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.ContainerID, &t.VehicleID, &sectorID, &t.QuantityLiters,
		&t.PricePerLiter, &t.TotalPrice, &odometer, &t.OperatorName, &t.Notes,
		&t.TransactionAt, &createdBy)
	t.SectorID = int64Ptr(sectorID)
	t.OdometerReading = int64Ptr(odometer)
	t.CreatedBy = int64Ptr(createdBy)
	return t, err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
