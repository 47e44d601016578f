package httpapi

import (
	"errors"
	"net/http"
	"sort"

	"jogger.org/internal/account"
	"jogger.org/internal/policy"
)

type delegationRequest struct {
	Email string `json:"email"`
}

type confirmRequest struct {
	Code string `json:"code"`
}

// accountView is the public shape of a related account.
type accountView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// handleManagers serves the caller's managers: list them, invite a new one,
// revoke an existing one.
func (a *API) handleManagers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ids, err := a.delegations.ManagersOf(r.Context(), principal.AccountID)
		if err != nil {
			handleDelegationError(w, r, err)
			return
		}
		a.writeAccountViews(w, r, ids)
	case http.MethodPost:
		a.inviteManager(w, r, principal)
	case http.MethodDelete:
		a.revokeManager(w, r, principal)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleManaging serves the accounts the caller manages: list them, confirm
// an invitation, stop managing one.
func (a *API) handleManaging(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ids, err := a.delegations.ManagingOf(r.Context(), principal.AccountID)
		if err != nil {
			handleDelegationError(w, r, err)
			return
		}
		a.writeAccountViews(w, r, ids)
	case http.MethodPost:
		a.confirmManaging(w, r, principal)
	case http.MethodDelete:
		a.stopManaging(w, r, principal)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) inviteManager(w http.ResponseWriter, r *http.Request, principal policy.Principal) {
	var req delegationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.accounts.Get(r.Context(), principal.AccountID)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	manager, err := a.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	rec, err := a.delegations.Request(r.Context(), user, manager)
	if err != nil {
		handleDelegationError(w, r, err)
		return
	}
	a.audit(r.Context(), "delegation.invite", map[string]any{
		"account_id": user.ID,
		"manager_id": manager.ID,
		"record_id":  rec.ID,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "invited"})
}

func (a *API) revokeManager(w http.ResponseWriter, r *http.Request, principal policy.Principal) {
	var req delegationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	manager, err := a.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if err := a.delegations.Revoke(r.Context(), principal.AccountID, manager.ID); err != nil {
		handleDelegationError(w, r, err)
		return
	}
	a.audit(r.Context(), "delegation.revoke", map[string]any{
		"account_id": principal.AccountID,
		"manager_id": manager.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) confirmManaging(w http.ResponseWriter, r *http.Request, principal policy.Principal) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := a.delegations.Confirm(r.Context(), principal.AccountID, req.Code)
	if err != nil {
		handleDelegationError(w, r, err)
		return
	}
	a.audit(r.Context(), "delegation.confirm", map[string]any{
		"account_id": rec.UserID,
		"manager_id": principal.AccountID,
		"record_id":  rec.ID,
	})
	managed, err := a.accounts.Get(r.Context(), rec.UserID)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountView{
		ID:       managed.ID,
		Email:    managed.Email,
		Username: managed.Username,
	})
}

func (a *API) stopManaging(w http.ResponseWriter, r *http.Request, principal policy.Principal) {
	var req delegationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	managed, err := a.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if err := a.delegations.Revoke(r.Context(), managed.ID, principal.AccountID); err != nil {
		handleDelegationError(w, r, err)
		return
	}
	a.audit(r.Context(), "delegation.revoke", map[string]any{
		"account_id": managed.ID,
		"manager_id": principal.AccountID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// writeAccountViews resolves the id set to accounts and writes them ordered
// by id. Accounts deleted since the query are skipped.
func (a *API) writeAccountViews(w http.ResponseWriter, r *http.Request, ids map[int64]struct{}) {
	views := make([]accountView, 0, len(ids))
	for id := range ids {
		acc, err := a.accounts.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				continue
			}
			handleAccountError(w, r, err)
			return
		}
		views = append(views, accountView{
			ID:       acc.ID,
			Email:    acc.Email,
			Username: acc.Username,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}
