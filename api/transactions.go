package api

import (
	"net/http"

	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
)

// defaultTransactionsLimit caps listings without ?limit=.
const defaultTransactionsLimit = 100

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns dispenses, newest first.
// GET /api/transactions?container_id=&vehicle_id=&start=&end=&limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := h.transactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	h.writeTransactions(w, r, f)
}

// ListVehicleTransactions returns one vehicle's dispenses.
// GET /api/vehicles/{id}/transactions
func (h *Handler) ListVehicleTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vehicle ID", err)
		return
	}
	if _, err := h.Fleet.GetVehicle(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to list transactions", err)
		return
	}

	f, err := h.transactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	f.VehicleID = &id
	h.writeTransactions(w, r, f)
}

func (h *Handler) transactionFilter(r *http.Request) (fuel.TransactionFilter, error) {
	var f fuel.TransactionFilter
	var err error
	if f.ContainerID, err = queryInt64(r, "container_id"); err != nil {
		return f, err
	}
	if f.VehicleID, err = queryInt64(r, "vehicle_id"); err != nil {
		return f, err
	}
	if f.Range, err = h.queryRange(r); err != nil {
		return f, err
	}
	if f.Limit, err = queryLimit(r, defaultTransactionsLimit); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) writeTransactions(w http.ResponseWriter, r *http.Request, f fuel.TransactionFilter) {
	views, err := h.Ledger.ListTransactions(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(views))
	for i, v := range views {
		dtos[i] = toTransactionDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DispenseFuel issues fuel from a container to a vehicle.
// POST /api/transactions
func (h *Handler) DispenseFuel(w http.ResponseWriter, r *http.Request) {
	var req DispenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ContainerID <= 0 || req.VehicleID <= 0 {
		writeError(w, http.StatusBadRequest, "container_id and vehicle_id are required", nil)
		return
	}

	in := fuel.DispenseInput{
		ContainerID:     req.ContainerID,
		VehicleID:       req.VehicleID,
		SectorID:        req.SectorID,
		QuantityLiters:  req.QuantityLiters,
		OdometerReading: req.OdometerReading,
		OperatorName:    req.OperatorName,
		Notes:           req.Notes,
		CreatedBy:       auth.UserIDFromContext(r.Context()),
	}
	if req.TransactionAt != nil {
		in.TransactionAt = *req.TransactionAt
	}

	tx, err := h.Ledger.DispenseFuel(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to dispense fuel", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(fuel.TransactionView{Transaction: *tx}))
}

// DeleteTransaction removes a dispense and credits its litres back.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID", err)
		return
	}

	tx, err := h.Ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(fuel.TransactionView{Transaction: *tx}))
}
