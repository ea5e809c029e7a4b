package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/zoxknez/bidon/export"
	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// REPORT HANDLERS
// =============================================================================
//
// The Reporter swallows store failures and returns empty results, so
// these handlers only fail on malformed query parameters.

// GetDashboard returns the landing-page summary.
// GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	s := h.Reporter.Dashboard(r.Context())
	writeJSON(w, http.StatusOK, DashboardDTO{
		ContainersCount:        s.ContainersCount,
		TotalFuel:              s.TotalFuel.InexactFloat64(),
		TotalCapacity:          s.TotalCapacity.InexactFloat64(),
		MonthlyDispensedLiters: s.MonthlyDispensedLiters.InexactFloat64(),
		MonthlyDispensedPrice:  s.MonthlyDispensedPrice.InexactFloat64(),
		MonthlyTransactions:    s.MonthlyTransactions,
		MonthlyAddedLiters:     s.MonthlyAddedLiters.InexactFloat64(),
		MonthlyAddedPrice:      s.MonthlyAddedPrice.InexactFloat64(),
	})
}

// ReportByVehicle returns dispensed totals per vehicle.
// GET /api/reports/vehicles?start=&end=
func (h *Handler) ReportByVehicle(w http.ResponseWriter, r *http.Request) {
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	rows := h.Reporter.ByVehicle(r.Context(), rng)
	dtos := make([]VehicleReportDTO, len(rows))
	for i, v := range rows {
		dtos[i] = VehicleReportDTO{
			VehicleID:    v.VehicleID,
			VehicleName:  v.VehicleName,
			Registration: v.Registration,
			TotalLiters:  v.TotalLiters.InexactFloat64(),
			TotalPrice:   v.TotalPrice.InexactFloat64(),
			Count:        v.Count,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReportBySector returns dispensed totals per sector, including a group
// for transactions without one.
// GET /api/reports/sectors?start=&end=
func (h *Handler) ReportBySector(w http.ResponseWriter, r *http.Request) {
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	rows := h.Reporter.BySector(r.Context(), rng)
	dtos := make([]SectorReportDTO, len(rows))
	for i, s := range rows {
		dtos[i] = SectorReportDTO{
			SectorID:    s.SectorID,
			SectorName:  s.SectorName,
			TotalLiters: s.TotalLiters.InexactFloat64(),
			TotalPrice:  s.TotalPrice.InexactFloat64(),
			Count:       s.Count,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReportByContainer returns dispensed and added totals per active container.
// GET /api/reports/containers?start=&end=
func (h *Handler) ReportByContainer(w http.ResponseWriter, r *http.Request) {
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	rows := h.Reporter.ByContainer(r.Context(), rng)
	dtos := make([]ContainerReportDTO, len(rows))
	for i, c := range rows {
		dtos[i] = ContainerReportDTO{
			ContainerID:     c.ContainerID,
			ContainerName:   c.ContainerName,
			CurrentLevel:    c.CurrentLevel.InexactFloat64(),
			DispensedLiters: c.DispensedLiters.InexactFloat64(),
			DispensedPrice:  c.DispensedPrice.InexactFloat64(),
			AddedLiters:     c.AddedLiters.InexactFloat64(),
			AddedPrice:      c.AddedPrice.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReportTotalCosts returns procurement totals.
// GET /api/reports/costs?start=&end=
func (h *Handler) ReportTotalCosts(w http.ResponseWriter, r *http.Request) {
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	c := h.Reporter.TotalCosts(r.Context(), rng)
	writeJSON(w, http.StatusOK, CostSummaryDTO{
		TotalLiters:      c.TotalLiters.InexactFloat64(),
		TotalPrice:       c.TotalPrice.InexactFloat64(),
		AvgPricePerLiter: c.AvgPricePerLiter.InexactFloat64(),
	})
}

// ReportTime returns both ledgers bucketed by period.
// GET /api/reports/time?period=daily|weekly|monthly|yearly&start=&end=
func (h *Handler) ReportTime(w http.ResponseWriter, r *http.Request) {
	period, err := fuel.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	rep := h.Reporter.TimeReport(r.Context(), period, rng)
	writeJSON(w, http.StatusOK, TimeReportDTO{
		Period:           string(rep.Period),
		Transactions:     toBucketDTOs(rep.Transactions),
		Additions:        toBucketDTOs(rep.Additions),
		AvgPricePerLiter: rep.AvgPricePerLiter.InexactFloat64(),
	})
}

// ExportReport renders the range reports as a spreadsheet or PDF.
// GET /api/reports/export?format=xlsx|pdf&start=&end=
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid format", err)
		return
	}
	rng, err := h.queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	bundle := h.Reporter.Bundle(r.Context(), rng)
	data, err := export.Build(format, bundle)
	if err != nil {
		h.Log.ErrorContext(r.Context(), "export failed",
			"error", err,
			"format", format,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to build export", nil)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(bundle)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
