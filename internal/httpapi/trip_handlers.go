package httpapi

import (
	"net/http"
	"strings"
	"time"

	"jogger.org/internal/policy"
	"jogger.org/internal/trip"
)

type createTripRequest struct {
	Duration int64 `json:"duration"`
	Distance int64 `json:"distance"`
}

type updateTripRequest struct {
	Duration *int64 `json:"duration"`
	Distance *int64 `json:"distance"`
}

type listTripsResponse struct {
	Items     []trip.Trip `json:"items"`
	NextAfter int64       `json:"next_after"`
	AsOf      time.Time   `json:"as_of"`
}

// handleTripsCollection serves the caller's own trips.
func (a *API) handleTripsCollection(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listTrips(w, r, principal.AccountID)
	case http.MethodPost:
		a.createTrip(w, r, principal.AccountID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleAccountTrips serves another account's trips, subject to policy.
func (a *API) handleAccountTrips(w http.ResponseWriter, r *http.Request, principal policy.Principal, accountID int64) {
	if err := a.policy.Decide(r.Context(), principal, r.Method, policy.TripTarget{AccountID: accountID}); err != nil {
		handlePolicyError(w, r, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listTrips(w, r, accountID)
	case http.MethodPost:
		a.createTrip(w, r, accountID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTripResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/trips/"), "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	// The trip must be loaded before the decision because the policy needs
	// the owning account. An unknown id and a denial look identical to the
	// caller.
	t, err := a.trips.Get(r.Context(), id)
	if err != nil {
		handleTripError(w, r, err)
		return
	}
	target := policy.TripTarget{ID: t.ID, AccountID: t.AccountID}
	if err := a.policy.Decide(r.Context(), principal, r.Method, target); err != nil {
		handlePolicyError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, t)
	case http.MethodPut, http.MethodPatch:
		a.updateTrip(w, r, id)
	case http.MethodDelete:
		a.deleteTrip(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createTrip(w http.ResponseWriter, r *http.Request, accountID int64) {
	var req createTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	t, err := a.trips.Create(r.Context(), accountID, req.Duration, req.Distance)
	if err != nil {
		handleTripError(w, r, err)
		return
	}
	a.audit(r.Context(), "trip.create", map[string]any{
		"trip_id":    t.ID,
		"account_id": t.AccountID,
	})
	w.Header().Set("Location", "/v1/trips/"+formatID(t.ID))
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) listTrips(w http.ResponseWriter, r *http.Request, accountID int64) {
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var after int64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		after, err = parseID(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a positive integer")
			return
		}
	}

	items, err := a.trips.ListByAccount(r.Context(), accountID, limit, after)
	if err != nil {
		handleTripError(w, r, err)
		return
	}
	var next int64
	if len(items) > 0 {
		next = items[len(items)-1].ID
	}
	writeJSON(w, http.StatusOK, listTripsResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) updateTrip(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	t, err := a.trips.Update(r.Context(), id, trip.Update{
		Duration: req.Duration,
		Distance: req.Distance,
	})
	if err != nil {
		handleTripError(w, r, err)
		return
	}
	a.audit(r.Context(), "trip.update", map[string]any{
		"trip_id": t.ID,
	})
	writeJSON(w, http.StatusOK, t)
}

func (a *API) deleteTrip(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.trips.Delete(r.Context(), id); err != nil {
		handleTripError(w, r, err)
		return
	}
	a.audit(r.Context(), "trip.delete", map[string]any{
		"trip_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
