package api

import (
	"net/http"

	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

// ListVehicles returns active vehicles ordered by name.
// GET /api/vehicles
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Fleet.ListVehicles(r.Context(), true)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list vehicles", err)
		return
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVehicle returns a single vehicle.
// GET /api/vehicles/{id}
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vehicle ID", err)
		return
	}

	v, err := h.Fleet.GetVehicle(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(*v))
}

// CreateVehicle adds a vehicle.
// POST /api/vehicles
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	in, ok := h.vehicleInput(w, r)
	if !ok {
		return
	}

	v, err := h.Fleet.CreateVehicle(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleDTO(*v))
}

// UpdateVehicle replaces a vehicle's writable fields.
// PUT /api/vehicles/{id}
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vehicle ID", err)
		return
	}
	in, ok := h.vehicleInput(w, r)
	if !ok {
		return
	}

	v, err := h.Fleet.UpdateVehicle(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(*v))
}

// DeleteVehicle deactivates a vehicle.
// DELETE /api/vehicles/{id}
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vehicle ID", err)
		return
	}

	if err := h.Fleet.DeleteVehicle(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete vehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *Handler) vehicleInput(w http.ResponseWriter, r *http.Request) (fuel.VehicleInput, bool) {
	var req VehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return fuel.VehicleInput{}, false
	}
	ft, err := fuel.ParseFuelType(req.FuelType)
	if err != nil {
		h.writeDomainError(w, r, "Invalid vehicle", err)
		return fuel.VehicleInput{}, false
	}
	return fuel.VehicleInput{
		Name:          req.Name,
		Registration:  req.Registration,
		VehicleTypeID: req.VehicleTypeID,
		SectorID:      req.SectorID,
		FuelType:      ft,
		Notes:         req.Notes,
	}, true
}

// =============================================================================
// VEHICLE TYPE HANDLERS
// =============================================================================

// ListVehicleTypes returns active vehicle types.
// GET /api/vehicle-types
func (h *Handler) ListVehicleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Fleet.ListVehicleTypes(r.Context(), true)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list vehicle types", err)
		return
	}

	dtos := make([]VehicleTypeDTO, len(types))
	for i, vt := range types {
		dtos[i] = toVehicleTypeDTO(vt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVehicleType adds a user-defined vehicle type.
// POST /api/vehicle-types
func (h *Handler) CreateVehicleType(w http.ResponseWriter, r *http.Request) {
	var req VehicleTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	vt, err := h.Fleet.CreateVehicleType(r.Context(), req.Name, req.Icon)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create vehicle type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVehicleTypeDTO(*vt))
}

// DeleteVehicleType deactivates a vehicle type. System types answer 409.
// DELETE /api/vehicle-types/{id}
func (h *Handler) DeleteVehicleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid vehicle type ID", err)
		return
	}

	if err := h.Fleet.DeleteVehicleType(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete vehicle type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// =============================================================================
// SECTOR HANDLERS
// =============================================================================

// ListSectors returns active sectors ordered by name.
// GET /api/sectors
func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.Fleet.ListSectors(r.Context(), true)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list sectors", err)
		return
	}

	dtos := make([]SectorDTO, len(sectors))
	for i, s := range sectors {
		dtos[i] = toSectorDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSector returns a single sector.
// GET /api/sectors/{id}
func (h *Handler) GetSector(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sector ID", err)
		return
	}

	s, err := h.Fleet.GetSector(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get sector", err)
		return
	}
	writeJSON(w, http.StatusOK, toSectorDTO(*s))
}

// CreateSector adds a sector.
// POST /api/sectors
func (h *Handler) CreateSector(w http.ResponseWriter, r *http.Request) {
	var req SectorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Fleet.CreateSector(r.Context(), req.Name, req.Description)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create sector", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSectorDTO(*s))
}

// UpdateSector renames or re-describes a sector.
// PUT /api/sectors/{id}
func (h *Handler) UpdateSector(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sector ID", err)
		return
	}

	var req SectorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Fleet.UpdateSector(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.writeDomainError(w, r, "Failed to update sector", err)
		return
	}
	writeJSON(w, http.StatusOK, toSectorDTO(*s))
}

// DeleteSector deactivates a sector.
// DELETE /api/sectors/{id}
func (h *Handler) DeleteSector(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sector ID", err)
		return
	}

	if err := h.Fleet.DeleteSector(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete sector", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}
