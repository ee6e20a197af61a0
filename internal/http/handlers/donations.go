package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"donation-server/internal/domain"
	"donation-server/internal/middleware"
	"donation-server/internal/service/donation"
)

type donationDTO struct {
	ID            string    `json:"id"`
	ReceiptNo     string    `json:"receiptNo"`
	DonorName     string    `json:"donorName"`
	DonorPhone    *string   `json:"donorPhone"`
	DonorEmail    *string   `json:"donorEmail"`
	Amount        float64   `json:"amount"`
	CategoryID    string    `json:"categoryId"`
	PaymentMethod string    `json:"paymentMethod"`
	Date          string    `json:"date"`
	OperatorID    string    `json:"operatorId"`
	Notes         string    `json:"notes,omitempty"`
	WhatsAppSent  bool      `json:"whatsappSent"`
	EmailSent     bool      `json:"emailSent"`
	Deleted       bool      `json:"deleted"`
	DeletedReason string    `json:"deletedReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDonationDTO(d domain.Donation) donationDTO {
	return donationDTO{
		ID:            d.ID,
		ReceiptNo:     d.ReceiptNo,
		DonorName:     d.DonorName,
		DonorPhone:    d.DonorPhone,
		DonorEmail:    d.DonorEmail,
		Amount:        float64(d.AmountCents) / 100,
		CategoryID:    d.CategoryID,
		PaymentMethod: string(d.PaymentMethod),
		Date:          d.DonatedAt.Format("2006-01-02"),
		OperatorID:    d.OperatorID,
		Notes:         d.Notes,
		WhatsAppSent:  d.WhatsAppSent,
		EmailSent:     d.EmailSent,
		Deleted:       d.Deleted(),
		DeletedReason: d.DeletedReason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type donationCreateRequest struct {
	DonorName     string `json:"donorName"`
	DonorPhone    string `json:"donorPhone"`
	DonorEmail    string `json:"donorEmail"`
	DonorLocale   string `json:"donorLocale"`
	Amount        any    `json:"amount"`
	CategoryID    string `json:"categoryId"`
	PaymentMethod string `json:"paymentMethod"`
	Date          string `json:"date"`
	Notes         string `json:"notes"`
	SkipWhatsApp  bool   `json:"skipWhatsapp"`
}

// DonationsCreate runs the intake workflow: WhatsApp confirmation first when a
// donor phone is present, then persist, then the detached email receipt.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	amountCents, err := coerceAmount(req.Amount)
	if err != nil {
		a.fail(w, err)
		return
	}
	var donatedAt time.Time
	if req.Date != "" {
		parsed, err := parseDateParam(req.Date)
		if err != nil {
			a.fail(w, err)
			return
		}
		donatedAt = *parsed
	}
	locale := req.DonorLocale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}

	result, err := a.Intake.Create(r.Context(), donation.CreateInput{
		DonorName:     req.DonorName,
		DonorPhone:    req.DonorPhone,
		DonorEmail:    req.DonorEmail,
		DonorLocale:   locale,
		AmountCents:   amountCents,
		CategoryID:    req.CategoryID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		DonatedAt:     donatedAt,
		Notes:         req.Notes,
		OperatorID:    a.currentUserID(r),
		SkipWhatsApp:  req.SkipWhatsApp,
		IP:            middleware.ClientIP(r),
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"donation":         toDonationDTO(*result.Donation),
		"whatsappSent":     result.WhatsAppDelivered,
		"templateFallback": result.TemplateFallback,
	})
}

// DonationsList is the admin listing with the full filter set.
func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDonationQuery(r.URL.Query())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.listDonations(w, r, filter)
}

// DonationsMy lists only the calling operator's records.
func (a *App) DonationsMy(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDonationQuery(r.URL.Query())
	if err != nil {
		a.fail(w, err)
		return
	}
	filter.OperatorID = a.currentUserID(r)
	filter.IncludeDeleted = false
	a.listDonations(w, r, filter)
}

func (a *App) listDonations(w http.ResponseWriter, r *http.Request, filter domain.DonationFilter) {
	items, total, err := a.Donations.List(r.Context(), filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	dtos := make([]donationDTO, 0, len(items))
	for _, d := range items {
		dtos = append(dtos, toDonationDTO(d))
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":  dtos,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (a *App) DonationsGet(w http.ResponseWriter, r *http.Request) {
	d, err := a.Donations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	if middleware.RoleFromContext(r.Context()) != domain.RoleAdmin && d.OperatorID != a.currentUserID(r) {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	a.json(w, http.StatusOK, toDonationDTO(*d))
}

type donationPatchRequest struct {
	DonorName     *string `json:"donorName"`
	DonorPhone    *string `json:"donorPhone"`
	DonorEmail    *string `json:"donorEmail"`
	Amount        any     `json:"amount"`
	CategoryID    *string `json:"categoryId"`
	PaymentMethod *string `json:"paymentMethod"`
	Date          *string `json:"date"`
	Notes         *string `json:"notes"`
}

// DonationsPatch applies admin edits. Changing a contact field resets its
// sent flag so a fresh notification can be attempted.
func (a *App) DonationsPatch(w http.ResponseWriter, r *http.Request) {
	var req donationPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	upd := domain.DonationUpdate{
		DonorName:  req.DonorName,
		DonorPhone: req.DonorPhone,
		DonorEmail: req.DonorEmail,
		Notes:      req.Notes,
	}
	if req.Amount != nil {
		cents, err := coerceAmount(req.Amount)
		if err != nil {
			a.fail(w, err)
			return
		}
		upd.AmountCents = &cents
	}
	if req.CategoryID != nil {
		upd.CategoryID = req.CategoryID
	}
	if req.PaymentMethod != nil {
		method := domain.PaymentMethod(*req.PaymentMethod)
		upd.PaymentMethod = &method
	}
	if req.Date != nil {
		parsed, err := parseDateParam(*req.Date)
		if err != nil {
			a.fail(w, err)
			return
		}
		upd.DonatedAt = parsed
	}

	updated, err := a.Intake.Update(r.Context(), chi.URLParam(r, "id"), upd, a.currentUserID(r), middleware.ClientIP(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, toDonationDTO(*updated))
}

type donationDeleteRequest struct {
	Reason string `json:"reason"`
}

func (a *App) DonationsDelete(w http.ResponseWriter, r *http.Request) {
	var req donationDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Intake.SoftDelete(r.Context(), chi.URLParam(r, "id"), req.Reason, a.currentUserID(r), middleware.ClientIP(r)); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *App) DonationsRestore(w http.ResponseWriter, r *http.Request) {
	if err := a.Intake.Restore(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r), middleware.ClientIP(r)); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"restored": true})
}

// DonationsSendReceipt is the manual, user-triggered email retry.
func (a *App) DonationsSendReceipt(w http.ResponseWriter, r *http.Request) {
	if err := a.Intake.ResendReceipt(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r), middleware.ClientIP(r)); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"emailSent": true})
}
