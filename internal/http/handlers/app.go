package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"donation-server/internal/domain"
	"donation-server/internal/infra"
	"donation-server/internal/middleware"
	"donation-server/internal/notify"
	"donation-server/internal/service/audit"
	"donation-server/internal/service/donation"
)

// App is the handler container; everything it needs is injected at startup.
type App struct {
	Users      domain.UserRepository
	Categories domain.CategoryRepository
	Donations  domain.DonationRepository
	AuditLog   domain.AuditRepository
	Intake     *donation.Service
	Recorder   *audit.Recorder
	Logger     infra.Logger
	JWTSecret  string
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errorBody{Code: errCode, Message: message}})
}

// fail maps domain and delivery errors onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, err error) {
	var de *notify.DeliveryError
	switch {
	case errors.As(err, &de):
		message := "notification could not be delivered"
		if !de.Retryable {
			message = "notification delivery is misconfigured, contact an administrator"
		}
		a.json(w, http.StatusBadGateway, map[string]any{"error": errorBody{
			Code:    "delivery_failed",
			Message: message,
			Details: map[string]any{
				"provider":     de.Provider,
				"providerCode": de.Code,
				"canRetry":     de.Retryable,
			},
		}})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInactive):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "not allowed")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "something went wrong")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
