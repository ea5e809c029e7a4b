/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Login and bearer-token gating
- Container, refill and dispense endpoints (status codes, payloads)
- Error mapping: 400 / 404 / 409 insufficient_fuel / 500
- Reports and export downloads
- Audit scheduler pass
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/fuel/store"
	"github.com/zoxknez/bidon/metrics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testAPI struct {
	t       *testing.T
	router  *chi.Mux
	store   *store.Memory
	ledger  *fuel.Ledger
	metrics *metrics.Metrics
	token   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithStore(t, store.NewMemory(), nil)
}

func newTestAPIWithStore(t *testing.T, mem *store.Memory, backend fuel.TxStore) *testAPI {
	t.Helper()
	if backend == nil {
		backend = mem
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	issuer, err := auth.NewIssuer([]byte("handler-test"), time.Hour)
	require.NoError(t, err)
	_, err = auth.CreateUser(context.Background(), mem, "admin", "admin123", "Administrator")
	require.NoError(t, err)

	m := metrics.New()
	ledger := fuel.NewLedger(backend, fuel.WithHook(m.ObserveLedger))
	h := NewHandler(
		ledger,
		fuel.NewFleet(backend),
		fuel.NewReporter(backend),
		auth.NewService(mem, issuer),
		issuer,
		m,
		log,
		time.UTC,
	)
	return &testAPI{
		t:       t,
		router:  NewRouter(h, RouterOptions{}),
		store:   mem,
		ledger:  ledger,
		metrics: m,
	}
}

func (a *testAPI) login() {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "admin", Password: "admin123"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	a.token = resp.Token
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) createContainer(capacity, level string) ContainerDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/containers", map[string]any{
		"name":            "Glavni bidon",
		"capacity_liters": capacity,
		"current_level":   level,
		"fuel_type":       "dizel",
		"location":        "Magacin",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ContainerDTO](a.t, rec)
}

func (a *testAPI) createVehicle(name string) VehicleDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/vehicles", VehicleRequest{Name: name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[VehicleDTO](a.t, rec)
}

// =============================================================================
// AUTH
// =============================================================================

func TestAPI_RequiresToken(t *testing.T) {
	// GIVEN: A router with auth enabled
	// WHEN: Calling a protected route with and without a token
	// THEN: Only the authenticated call succeeds

	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/containers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	api.login()
	rec = api.do(http.MethodGet, "/api/containers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPI_HealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// =============================================================================
// CONTAINERS & LEDGER
// =============================================================================

func TestAPI_ContainerLifecycle(t *testing.T) {
	api := newTestAPI(t)
	api.login()

	c := api.createContainer("1000", "250.5")
	assert.Equal(t, 250.5, c.CurrentLevel)
	assert.Equal(t, 250.5, c.InitialLevel)
	assert.InDelta(t, 25.05, c.FillPercent, 0.001)

	path := fmt.Sprintf("/api/containers/%d", c.ID)
	rec := api.do(http.MethodPut, path, map[string]any{"current_level": "300"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[ContainerDTO](t, rec)
	assert.Equal(t, 300.0, updated.CurrentLevel)
	assert.Equal(t, 300.0, updated.InitialLevel, "manual level edits move the genesis balance")

	rec = api.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"success":true,"id":%d}`, c.ID), rec.Body.String())

	rec = api.do(http.MethodGet, "/api/containers", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/containers/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodGet, "/api/containers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AddAndDispense(t *testing.T) {
	// GIVEN: A 1000 L container at 100 L and one vehicle
	// WHEN: Adding 200 L at 180/L and dispensing 50 L
	// THEN: The dispense snapshots 180/L and the level is 250 L

	api := newTestAPI(t)
	api.login()
	c := api.createContainer("1000", "100")
	v := api.createVehicle("Traktor IMT 539")

	path := fmt.Sprintf("/api/containers/%d", c.ID)
	rec := api.do(http.MethodPost, path+"/additions", map[string]any{
		"quantity_liters": 200,
		"price_per_liter": "180",
		"supplier":        "NIS",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	add := decode[AdditionDTO](t, rec)
	assert.Equal(t, 36000.0, add.TotalPrice)
	require.NotNil(t, add.CreatedBy, "created_by comes from the token")

	rec = api.do(http.MethodGet, path+"/last-price", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	last := decode[LastPriceDTO](t, rec)
	require.NotNil(t, last.PricePerLiter)
	assert.Equal(t, 180.0, *last.PricePerLiter)

	rec = api.do(http.MethodPost, "/api/transactions", DispenseRequest{
		ContainerID:    c.ID,
		VehicleID:      v.ID,
		QuantityLiters: decimal.NewFromInt(50),
		OperatorName:   "Marko",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[TransactionDTO](t, rec)
	require.NotNil(t, tx.TotalPrice)
	assert.Equal(t, 9000.0, *tx.TotalPrice)

	rec = api.do(http.MethodGet, path, nil)
	assert.Equal(t, 250.0, decode[ContainerDTO](t, rec).CurrentLevel)

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/vehicles/%d/transactions", v.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]TransactionDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Glavni bidon", list[0].ContainerName)
	assert.Equal(t, "Traktor IMT 539", list[0].VehicleName)

	rec = api.do(http.MethodGet, path+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[BalanceCheckDTO](t, rec).Consistent)
}

func TestAPI_DispenseInsufficientFuel(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	c := api.createContainer("1000", "30")
	v := api.createVehicle("Kamion")

	rec := api.do(http.MethodPost, "/api/transactions", DispenseRequest{
		ContainerID:    c.ID,
		VehicleID:      v.ID,
		QuantityLiters: decimal.NewFromInt(45),
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error   string             `json:"error"`
		Code    string             `json:"code"`
		Details map[string]float64 `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_fuel", resp.Code)
	assert.Equal(t, 30.0, resp.Details["available"])
	assert.Equal(t, 45.0, resp.Details["requested"])

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/containers/%d", c.ID), nil)
	assert.Equal(t, 30.0, decode[ContainerDTO](t, rec).CurrentLevel)
}

func TestAPI_DispenseValidation(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	c := api.createContainer("1000", "30")
	v := api.createVehicle("Kamion")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed body", `{"container_id":`, http.StatusBadRequest},
		{"missing ids", DispenseRequest{QuantityLiters: decimal.NewFromInt(1)}, http.StatusBadRequest},
		{"zero quantity", DispenseRequest{ContainerID: c.ID, VehicleID: v.ID}, http.StatusBadRequest},
		{"three decimals", DispenseRequest{ContainerID: c.ID, VehicleID: v.ID, QuantityLiters: decimal.RequireFromString("1.005")}, http.StatusBadRequest},
		{"unknown vehicle", DispenseRequest{ContainerID: c.ID, VehicleID: 99, QuantityLiters: decimal.NewFromInt(1)}, http.StatusNotFound},
		{"unknown container", DispenseRequest{ContainerID: 99, VehicleID: v.ID, QuantityLiters: decimal.NewFromInt(1)}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_DeleteTransactionCreditsBack(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	c := api.createContainer("100", "100")
	v := api.createVehicle("Agregat")

	rec := api.do(http.MethodPost, "/api/transactions", DispenseRequest{ContainerID: c.ID, VehicleID: v.ID, QuantityLiters: decimal.NewFromInt(40)})
	require.Equal(t, http.StatusCreated, rec.Code)
	tx := decode[TransactionDTO](t, rec)
	assert.Nil(t, tx.PricePerLiter, "no refill yet, so no price")

	txPath := fmt.Sprintf("/api/transactions/%d", tx.ID)
	rec = api.do(http.MethodDelete, txPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tx.ID, decode[TransactionDTO](t, rec).ID)

	rec = api.do(http.MethodGet, fmt.Sprintf("/api/containers/%d", c.ID), nil)
	assert.Equal(t, 100.0, decode[ContainerDTO](t, rec).CurrentLevel)

	rec = api.do(http.MethodDelete, txPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAPI_SystemVehicleTypeConflict(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	system := &fuel.VehicleType{Name: "Traktor", IsSystem: true, IsActive: true}
	require.NoError(t, api.store.InsertVehicleType(context.Background(), system))

	rec := api.do(http.MethodDelete, fmt.Sprintf("/api/vehicle-types/%d", system.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/vehicle-types", VehicleTypeRequest{Name: "Kvad"})
	require.Equal(t, http.StatusCreated, rec.Code)
	custom := decode[VehicleTypeDTO](t, rec)
	assert.False(t, custom.IsSystem)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/api/vehicle-types/%d", custom.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Sectors(t *testing.T) {
	api := newTestAPI(t)
	api.login()

	rec := api.do(http.MethodPost, "/api/sectors", SectorRequest{Name: "Šumarstvo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[SectorDTO](t, rec)

	rec = api.do(http.MethodPut, fmt.Sprintf("/api/sectors/%d", created.ID), SectorRequest{Name: "Šumarstvo", Description: "Sječa"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sječa", decode[SectorDTO](t, rec).Description)

	rec = api.do(http.MethodPost, "/api/sectors", SectorRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/sectors/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAPI_Reports(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	c := api.createContainer("1000", "500")
	v := api.createVehicle("Kombajn")
	rec := api.do(http.MethodPost, "/api/transactions", DispenseRequest{
		ContainerID:    c.ID,
		VehicleID:      v.ID,
		QuantityLiters: decimal.NewFromInt(60),
		TransactionAt:  ptr(time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC)),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/api/reports/vehicles?start=2025-05-01&end=2025-05-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]VehicleReportDTO](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, 60.0, rows[0].TotalLiters, "end date is inclusive")

	rec = api.do(http.MethodGet, "/api/reports/vehicles?start=2025-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/reports/sectors", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/api/reports/containers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/api/reports/costs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/reports/time?period=monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decode[TimeReportDTO](t, rec)
	require.Len(t, tr.Transactions, 1)
	assert.Equal(t, "2025-05", tr.Transactions[0].Period)

	rec = api.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[DashboardDTO](t, rec).ContainersCount)

	rec = api.do(http.MethodGet, "/api/reports/time?period=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/reports/vehicles?start=10.05.2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodGet, "/api/reports/vehicles?start=2025-06-01&end=2025-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Export(t *testing.T) {
	api := newTestAPI(t)
	api.login()
	api.createContainer("1000", "500")

	rec := api.do(http.MethodGet, "/api/reports/export?format=pdf&start=2025-01-01&end=2025-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bidon-report-20250101-20250131.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = api.do(http.MethodGet, "/api/reports/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = api.do(http.MethodGet, "/api/reports/export?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// FAILURES
// =============================================================================

type brokenStore struct {
	*store.Memory
}

func (brokenStore) ListContainers(context.Context, bool) ([]fuel.Container, error) {
	return nil, errors.New("disk I/O error")
}

func TestAPI_StoreFailure(t *testing.T) {
	// GIVEN: A store whose container listing fails
	// WHEN: Listing containers and reading the dashboard
	// THEN: The list is a 500 with a generic message, the report degrades to 200

	mem := store.NewMemory()
	api := newTestAPIWithStore(t, mem, brokenStore{mem})
	api.login()

	rec := api.do(http.MethodGet, "/api/containers", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.NotContains(t, resp.Error, "disk I/O")

	rec = api.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[DashboardDTO](t, rec).ContainersCount)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestAuditScheduler_RunNow(t *testing.T) {
	// GIVEN: One container whose level was changed outside the ledger
	// WHEN: Running an audit pass
	// THEN: It is reported as drifted and the gauge is set

	api := newTestAPI(t)
	ctx := context.Background()
	c, err := api.ledger.CreateContainer(ctx, fuel.NewContainer{Name: "Bidon 2", CapacityLiters: decimal.NewFromInt(200), CurrentLevel: decimal.NewFromInt(80)})
	require.NoError(t, err)
	_, err = api.ledger.CreateContainer(ctx, fuel.NewContainer{Name: "Bidon 3", CapacityLiters: decimal.NewFromInt(200)})
	require.NoError(t, err)
	require.NoError(t, api.store.AdjustLevel(ctx, c.ID, decimal.NewFromInt(-5)))

	s := NewAuditScheduler(api.ledger, api.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	drifted := s.RunNow(ctx)
	require.Len(t, drifted, 1)
	assert.Equal(t, c.ID, drifted[0].ContainerID)
	assert.True(t, decimal.NewFromInt(-5).Equal(drifted[0].Drift))

	// A non-positive interval keeps the background loop off.
	s.Start()
	s.Stop()
}

func ptr[T any](v T) *T {
	return &v
}

func TestQueryRange_DSTDays(t *testing.T) {
	// GIVEN: A handler reporting in Europe/Belgrade
	// WHEN: The end date is a 25 hour or a 23 hour day
	// THEN: The range ends at that local day's last second

	loc, err := time.LoadLocation("Europe/Belgrade")
	require.NoError(t, err)
	h := &Handler{Location: loc}

	rangeTo := func(t *testing.T, end string) *fuel.DateRange {
		t.Helper()
		rng, err := h.queryRange(httptest.NewRequest(http.MethodGet, "/api/reports/by-vehicle?end="+end, nil))
		require.NoError(t, err)
		require.NotNil(t, rng)
		return rng
	}

	t.Run("fall back", func(t *testing.T) {
		rng := rangeTo(t, "2025-10-26")
		assert.True(t, rng.End.Equal(time.Date(2025, time.October, 26, 23, 59, 59, 0, loc)), "end %s", rng.End)
		assert.True(t, rng.Contains(time.Date(2025, time.October, 26, 23, 30, 0, 0, loc)))
		assert.False(t, rng.Contains(time.Date(2025, time.October, 27, 0, 0, 0, 0, loc)))
	})

	t.Run("spring forward", func(t *testing.T) {
		rng := rangeTo(t, "2025-03-30")
		assert.True(t, rng.End.Equal(time.Date(2025, time.March, 30, 23, 59, 59, 0, loc)), "end %s", rng.End)
		assert.True(t, rng.Contains(time.Date(2025, time.March, 30, 23, 30, 0, 0, loc)))
		assert.False(t, rng.Contains(time.Date(2025, time.March, 31, 0, 30, 0, 0, loc)))
	})
}
