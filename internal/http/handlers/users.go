package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"donation-server/internal/domain"
	"donation-server/internal/middleware"
)

func (a *App) UsersList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Users.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	dtos := make([]userDTO, 0, len(items))
	for _, u := range items {
		dtos = append(dtos, toUserDTO(u))
	}
	a.json(w, http.StatusOK, map[string]any{"items": dtos})
}

type userCreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *App) UsersCreate(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.error(w, http.StatusBadRequest, "bad_request", "a valid email is required")
		return
	}
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}
	role := domain.UserRole(req.Role)
	if role == "" {
		role = domain.RoleOperator
	}
	if !domain.ValidRole(role) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.fail(w, err)
		return
	}

	created, err := a.Users.Create(r.Context(), &domain.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	actor := a.currentUserID(r)
	a.Recorder.Record(r.Context(), domain.AuditEntry{
		ActorID:     &actor,
		Action:      domain.AuditUserCreated,
		EntityType:  "user",
		EntityID:    &created.ID,
		Description: "user " + created.Email + " created",
		Metadata:    map[string]any{"role": created.Role},
		IP:          middleware.ClientIP(r),
	})
	a.json(w, http.StatusCreated, toUserDTO(*created))
}

type userPatchRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password"`
}

func (a *App) UsersPatch(w http.ResponseWriter, r *http.Request) {
	var req userPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	upd := domain.UserUpdate{Name: req.Name, IsActive: req.IsActive}
	if req.Role != nil {
		role := domain.UserRole(*req.Role)
		if !domain.ValidRole(role) {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown role")
			return
		}
		upd.Role = &role
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			a.fail(w, err)
			return
		}
		hashed := string(hash)
		upd.PasswordHash = &hashed
	}

	id := chi.URLParam(r, "id")
	if req.IsActive != nil && !*req.IsActive && id == a.currentUserID(r) {
		a.error(w, http.StatusBadRequest, "bad_request", "cannot deactivate your own account")
		return
	}

	updated, err := a.Users.Update(r.Context(), id, upd)
	if err != nil {
		a.fail(w, err)
		return
	}

	actor := a.currentUserID(r)
	a.Recorder.Record(r.Context(), domain.AuditEntry{
		ActorID:     &actor,
		Action:      domain.AuditUserUpdated,
		EntityType:  "user",
		EntityID:    &updated.ID,
		Description: "user " + updated.Email + " updated",
		IP:          middleware.ClientIP(r),
	})
	a.json(w, http.StatusOK, toUserDTO(*updated))
}
