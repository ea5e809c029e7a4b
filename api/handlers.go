/*
handlers.go - HTTP API handlers for the fuel ledger

PURPOSE:
  Exposes the fuel ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the fuel package.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                   Sign in, returns a bearer token

  Containers (containers.go):
    GET    /api/containers                   List active containers
    POST   /api/containers                   Create container
    GET    /api/containers/{id}              Get container
    PUT    /api/containers/{id}              Update container
    DELETE /api/containers/{id}              Deactivate container
    GET    /api/containers/{id}/additions    Refill history
    POST   /api/containers/{id}/additions    Record a refill
    GET    /api/containers/{id}/last-price   Most recent refill price
    GET    /api/containers/{id}/audit        Recompute the balance from the ledger

  Transactions (transactions.go):
    GET    /api/transactions                 List dispenses
    POST   /api/transactions                 Dispense fuel
    DELETE /api/transactions/{id}            Delete a dispense, credit the level back

  Catalog (fleet.go):
    /api/vehicles, /api/vehicle-types, /api/sectors

  Reports (reports.go):
    GET    /api/dashboard
    GET    /api/reports/{vehicles,sectors,containers,costs,time,export}

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert DTO to fuel input
  3. Call Ledger, Fleet or Reporter
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON {"success": false, "error": ...}:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Insufficient fuel, protected system vehicle type
  - 500: Store failures (details are logged, not returned)

  Report endpoints never fail: the Reporter degrades to empty results.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/metrics"
)

// dateLayout is the format of ?start= and ?end= query parameters.
const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *fuel.Ledger
	Fleet    *fuel.Fleet
	Reporter *fuel.Reporter
	Auth     *auth.Service
	Issuer   *auth.Issuer
	Metrics  *metrics.Metrics
	Log      *slog.Logger

	// Location interprets date-only query parameters.
	Location *time.Location
}

// NewHandler creates a handler over the given services. authSvc and
// issuer may be nil when authentication is disabled; m may be nil when
// metrics are disabled.
func NewHandler(ledger *fuel.Ledger, fleet *fuel.Fleet, reporter *fuel.Reporter, authSvc *auth.Service, issuer *auth.Issuer, m *metrics.Metrics, log *slog.Logger, loc *time.Location) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Ledger:   ledger,
		Fleet:    fleet,
		Reporter: reporter,
		Auth:     authSvc,
		Issuer:   issuer,
		Metrics:  m,
		Log:      log,
		Location: loc,
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a bearer token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil {
		writeError(w, http.StatusNotFound, "Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, expires, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
			return
		}
		h.Log.ErrorContext(r.Context(), "login failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Login failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires})
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Success: false, Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a fuel error to its status. Store failures are
// logged with the request ID and answered with the generic message only.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var insufficient *fuel.InsufficientFuelError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: err.Error(),
			Code:  "insufficient_fuel",
			Details: map[string]float64{
				"available": insufficient.Available.InexactFloat64(),
				"requested": insufficient.Requested.InexactFloat64(),
			},
		})
	case fuel.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case fuel.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case fuel.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		h.Log.ErrorContext(r.Context(), message,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// queryInt64 parses an optional positive integer query parameter.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}

// queryLimit parses ?limit=, returning fallback when absent.
func queryLimit(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

// queryRange parses ?start= and ?end= as YYYY-MM-DD in the handler's
// location. The end day is inclusive through its last local second, DST
// days included. With neither
// parameter the range is nil, meaning all time.
func (h *Handler) queryRange(r *http.Request) (*fuel.DateRange, error) {
	q := r.URL.Query()
	rawStart := strings.TrimSpace(q.Get("start"))
	rawEnd := strings.TrimSpace(q.Get("end"))
	if rawStart == "" && rawEnd == "" {
		return nil, nil
	}

	rng := &fuel.DateRange{
		Start: time.Unix(0, 0).UTC(),
		End:   time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	if rawStart != "" {
		start, err := time.ParseInLocation(dateLayout, rawStart, h.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", rawStart)
		}
		rng.Start = start
	}
	if rawEnd != "" {
		end, err := time.ParseInLocation(dateLayout, rawEnd, h.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", rawEnd)
		}
		rng.End = end.AddDate(0, 0, 1).Add(-time.Second)
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return rng, nil
}
