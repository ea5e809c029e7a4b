package api

import (
	"net/http"

	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
)

// defaultAdditionsLimit caps the refill history returned without ?limit=.
const defaultAdditionsLimit = 50

// =============================================================================
// CONTAINER HANDLERS
// =============================================================================

// ListContainers returns active containers, newest first.
// GET /api/containers
func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := h.Ledger.ListContainers(r.Context(), true)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list containers", err)
		return
	}

	dtos := make([]ContainerDTO, len(containers))
	for i, c := range containers {
		dtos[i] = toContainerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContainer returns a single container.
// GET /api/containers/{id}
func (h *Handler) GetContainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}

	c, err := h.Ledger.GetContainer(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get container", err)
		return
	}
	writeJSON(w, http.StatusOK, toContainerDTO(*c))
}

// CreateContainer creates a container. The given level is its opening balance.
// POST /api/containers
func (h *Handler) CreateContainer(w http.ResponseWriter, r *http.Request) {
	var req CreateContainerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	fuelType, err := fuel.ParseFuelType(req.FuelType)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create container", err)
		return
	}

	c, err := h.Ledger.CreateContainer(r.Context(), fuel.NewContainer{
		Name:           req.Name,
		CapacityLiters: req.CapacityLiters,
		CurrentLevel:   req.CurrentLevel,
		FuelType:       fuelType,
		Location:       req.Location,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to create container", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContainerDTO(*c))
}

// UpdateContainer applies a partial update.
// PUT /api/containers/{id}
func (h *Handler) UpdateContainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}

	var req UpdateContainerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	upd := fuel.ContainerUpdate{
		Name:           req.Name,
		CapacityLiters: req.CapacityLiters,
		CurrentLevel:   req.CurrentLevel,
		Location:       req.Location,
	}
	if req.FuelType != nil {
		ft, err := fuel.ParseFuelType(*req.FuelType)
		if err != nil {
			h.writeDomainError(w, r, "Failed to update container", err)
			return
		}
		upd.FuelType = &ft
	}

	c, err := h.Ledger.UpdateContainer(r.Context(), id, upd)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update container", err)
		return
	}
	writeJSON(w, http.StatusOK, toContainerDTO(*c))
}

// DeleteContainer deactivates a container.
// DELETE /api/containers/{id}
func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}

	if err := h.Ledger.DeleteContainer(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete container", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// =============================================================================
// ADDITION HANDLERS
// =============================================================================

// ListAdditions returns a container's refills, newest first.
// GET /api/containers/{id}/additions?limit=
func (h *Handler) ListAdditions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}
	limit, err := queryLimit(r, defaultAdditionsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	additions, err := h.Ledger.ListAdditions(r.Context(), id, limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list additions", err)
		return
	}

	dtos := make([]AdditionDTO, len(additions))
	for i, a := range additions {
		dtos[i] = toAdditionDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddFuel records a refill.
// POST /api/containers/{id}/additions
func (h *Handler) AddFuel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}

	var req AddFuelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := fuel.AddFuelInput{
		ContainerID:    id,
		QuantityLiters: req.QuantityLiters,
		PricePerLiter:  req.PricePerLiter,
		Supplier:       req.Supplier,
		ReceiptNumber:  req.ReceiptNumber,
		Notes:          req.Notes,
		CreatedBy:      auth.UserIDFromContext(r.Context()),
	}
	if req.AddedAt != nil {
		in.AddedAt = *req.AddedAt
	}

	a, err := h.Ledger.AddFuel(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to add fuel", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdditionDTO(*a))
}

// GetLastPrice returns the most recent refill price, or null.
// GET /api/containers/{id}/last-price
func (h *Handler) GetLastPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}
	if _, err := h.Ledger.GetContainer(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to get last price", err)
		return
	}

	price, err := h.Ledger.LastPrice(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get last price", err)
		return
	}
	writeJSON(w, http.StatusOK, LastPriceDTO{ContainerID: id, PricePerLiter: nullFloat(price)})
}

// AuditContainer recomputes a container's level from its ledger.
// GET /api/containers/{id}/audit
func (h *Handler) AuditContainer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid container ID", err)
		return
	}

	check, err := h.Ledger.Verify(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to audit container", err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.SetDrift(check.ContainerID, check.Drift.InexactFloat64())
	}
	writeJSON(w, http.StatusOK, toBalanceCheckDTO(*check))
}
