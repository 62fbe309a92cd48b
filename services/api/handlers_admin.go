package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"seatrail/services/admin"
	"seatrail/services/marketplace"
)

var errAuditDisabled = errors.New("audit log is not configured")

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var f marketplace.UserFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err := marketplace.ParseRole(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		f.Role = role
	}
	active, err := queryBool(r, "active")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	f.Active = active

	users, err := a.svc.Admin.ListUsers(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": orEmpty(users)})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in admin.UserInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.svc.Admin.CreateUser(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	detail, err := a.svc.Admin.GetUser(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": detail})
}

func (a *API) handleBanUser(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, a.svc.Admin.BanUser)
}

func (a *API) handleUnbanUser(w http.ResponseWriter, r *http.Request) {
	a.setActive(w, r, a.svc.Admin.UnbanUser)
}

func (a *API) setActive(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, userID uuid.UUID) (marketplace.User, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := fn(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	report, err := a.svc.Admin.RemoveUser(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"removal": report})
}

func (a *API) handleAdminListGuides(w http.ResponseWriter, r *http.Request) {
	var status marketplace.VerificationStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s, err := marketplace.ParseVerificationStatus(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		status = s
	}
	list, err := a.svc.Guides.ListByStatus(r.Context(), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guides": orEmpty(list)})
}

func (a *API) handleVerifyGuide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	guide, err := a.svc.Guides.Verify(r.Context(), actor(r), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guide": guide})
}

func (a *API) handleRejectGuide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	guide, err := a.svc.Guides.Reject(r.Context(), actor(r), id, r.URL.Query().Get("reason"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"guide": guide})
}

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	if a.svc.Audit == nil {
		respondError(w, http.StatusNotImplemented, errAuditDisabled)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := a.svc.Audit.Recent(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": orEmpty(entries)})
}
