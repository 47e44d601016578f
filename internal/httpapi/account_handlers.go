package httpapi

import (
	"net/http"
	"strings"

	"jogger.org/internal/account"
	"jogger.org/internal/policy"
)

type profileUpdateRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		acc, err := a.accounts.Get(r.Context(), principal.AccountID)
		if err != nil {
			handleAccountError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)
	case http.MethodPut, http.MethodPatch:
		a.updateAccount(w, r, principal.AccountID)
	case http.MethodDelete:
		a.deleteAccount(w, r, principal.AccountID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// handleAccountResource routes /v1/accounts/{id} and /v1/accounts/{id}/trips.
func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case len(parts) == 1:
		a.handleAccount(w, r, principal, id)
	case len(parts) == 2 && parts[1] == "trips":
		a.handleAccountTrips(w, r, principal, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAccount(w http.ResponseWriter, r *http.Request, principal policy.Principal, id int64) {
	if err := a.policy.Decide(r.Context(), principal, r.Method, policy.AccountTarget{ID: id}); err != nil {
		handlePolicyError(w, r, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		acc, err := a.accounts.Get(r.Context(), id)
		if err != nil {
			handleAccountError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)
	case http.MethodPut, http.MethodPatch:
		a.updateAccount(w, r, id)
	case http.MethodDelete:
		a.deleteAccount(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request, id int64) {
	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := a.accounts.UpdateProfile(r.Context(), id, account.ProfileUpdate{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "account.update", map[string]any{
		"account_id": acc.ID,
	})
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) deleteAccount(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.accounts.Delete(r.Context(), id); err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r.Context(), "account.delete", map[string]any{
		"account_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}
