package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-server/internal/domain"
	"donation-server/internal/middleware"
	"donation-server/internal/notify"
)

func authedRequest(method, target, body, userID string, role domain.UserRole) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.ContextWithUser(req.Context(), userID, role))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestDonationsCreate(t *testing.T) {
	app, deps := newTestApp()
	deps.notifier.result = notify.SendResult{MessageID: "wamid.1"}

	payload := `{
		"donorName": "Asha Rao",
		"donorPhone": "+919876543210",
		"amount": "1000.50",
		"categoryId": "` + testCategoryID + `",
		"paymentMethod": "UPI"
	}`
	req := authedRequest(http.MethodPost, "/v1/donations", payload, testOperatorID, domain.RoleOperator)
	rec := httptest.NewRecorder()
	app.DonationsCreate(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["whatsappSent"])
	assert.Equal(t, false, body["templateFallback"])

	d := body["donation"].(map[string]any)
	assert.Equal(t, 1000.5, d["amount"], "string amount is coerced to minor units and back")
	assert.Equal(t, "Asha Rao", d["donorName"])
	assert.Equal(t, testOperatorID, d["operatorId"])
	assert.NotEmpty(t, d["receiptNo"])
	assert.Equal(t, true, d["whatsappSent"])
	assert.Equal(t, 1, deps.notifier.calls)
}

func TestDonationsCreate_DeliveryFailure(t *testing.T) {
	app, deps := newTestApp()
	deps.notifier.err = &notify.DeliveryError{
		Provider: "whatsapp", Code: "network", Message: "connection reset", Retryable: true,
	}

	payload := `{
		"donorName": "Asha Rao",
		"donorPhone": "+919876543210",
		"amount": 250,
		"categoryId": "` + testCategoryID + `",
		"paymentMethod": "CASH"
	}`
	req := authedRequest(http.MethodPost, "/v1/donations", payload, testOperatorID, domain.RoleOperator)
	rec := httptest.NewRecorder()
	app.DonationsCreate(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "delivery_failed", errBody["code"])
	details := errBody["details"].(map[string]any)
	assert.Equal(t, "whatsapp", details["provider"])
	assert.Equal(t, true, details["canRetry"])

	items, _, err := deps.donations.List(context.Background(), domain.DonationFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "failed confirmation must not leave a donation behind")
}

func TestDonationsCreate_Validation(t *testing.T) {
	app, _ := newTestApp()

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"donorName":`},
		{"missing amount", `{"donorName":"A","categoryId":"` + testCategoryID + `","paymentMethod":"CASH"}`},
		{"bad amount string", `{"donorName":"A","amount":"lots","categoryId":"` + testCategoryID + `","paymentMethod":"CASH"}`},
		{"bad method", `{"donorName":"A","amount":10,"categoryId":"` + testCategoryID + `","paymentMethod":"GOLD"}`},
		{"unknown category", `{"donorName":"A","amount":10,"categoryId":"nope","paymentMethod":"CASH"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/v1/donations", tt.payload, testOperatorID, domain.RoleOperator)
			rec := httptest.NewRecorder()
			app.DonationsCreate(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestDonationsGet_OwnershipHidesOthers(t *testing.T) {
	app, deps := newTestApp()
	seeded, err := deps.donations.Create(context.Background(), &domain.Donation{
		DonorName:     "Asha Rao",
		AmountCents:   5000,
		CategoryID:    testCategoryID,
		PaymentMethod: domain.PaymentCash,
		DonatedAt:     time.Now(),
		OperatorID:    testAdminID,
	})
	require.NoError(t, err)

	t.Run("other operator gets 404", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/v1/donations/"+seeded.ID, "", testOperatorID, domain.RoleOperator)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsGet(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/v1/donations/"+seeded.ID, "", testAdminID, domain.RoleAdmin)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsGet(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("owner sees their own", func(t *testing.T) {
		req := authedRequest(http.MethodGet, "/v1/donations/"+seeded.ID, "", testAdminID, domain.RoleOperator)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsGet(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDonationsMy_ScopedToCaller(t *testing.T) {
	app, deps := newTestApp()
	_, err := deps.donations.Create(context.Background(), &domain.Donation{
		DonorName: "Mine", AmountCents: 100, CategoryID: testCategoryID,
		PaymentMethod: domain.PaymentCash, DonatedAt: time.Now(), OperatorID: testOperatorID,
	})
	require.NoError(t, err)
	_, err = deps.donations.Create(context.Background(), &domain.Donation{
		DonorName: "Someone else's", AmountCents: 100, CategoryID: testCategoryID,
		PaymentMethod: domain.PaymentCash, DonatedAt: time.Now(), OperatorID: testAdminID,
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodGet, "/v1/donations/my", "", testOperatorID, domain.RoleOperator)
	rec := httptest.NewRecorder()
	app.DonationsMy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Mine", items[0].(map[string]any)["donorName"])
}

func TestDonationsPatch_ResetsSentFlagOnContactChange(t *testing.T) {
	app, deps := newTestApp()
	phone := "+919876543210"
	seeded, err := deps.donations.Create(context.Background(), &domain.Donation{
		DonorName: "Asha Rao", DonorPhone: &phone, AmountCents: 5000,
		CategoryID: testCategoryID, PaymentMethod: domain.PaymentUPI,
		DonatedAt: time.Now(), OperatorID: testOperatorID, WhatsAppSent: true,
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodPatch, "/v1/donations/"+seeded.ID,
		`{"donorPhone": "+918887776665"}`, testAdminID, domain.RoleAdmin)
	req = withURLParam(req, "id", seeded.ID)
	rec := httptest.NewRecorder()
	app.DonationsPatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := deps.donations.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "+918887776665", *stored.DonorPhone)
	assert.False(t, stored.WhatsAppSent, "changed phone resets the delivery flag")
}

func TestDonationsDeleteAndRestore(t *testing.T) {
	app, deps := newTestApp()
	seeded, err := deps.donations.Create(context.Background(), &domain.Donation{
		DonorName: "Asha Rao", AmountCents: 5000, CategoryID: testCategoryID,
		PaymentMethod: domain.PaymentCash, DonatedAt: time.Now(), OperatorID: testOperatorID,
	})
	require.NoError(t, err)

	t.Run("delete without reason fails", func(t *testing.T) {
		req := authedRequest(http.MethodDelete, "/v1/donations/"+seeded.ID, `{"reason":""}`, testAdminID, domain.RoleAdmin)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsDelete(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete with reason", func(t *testing.T) {
		req := authedRequest(http.MethodDelete, "/v1/donations/"+seeded.ID, `{"reason":"duplicate entry"}`, testAdminID, domain.RoleAdmin)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsDelete(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := deps.donations.GetByID(context.Background(), seeded.ID)
		require.NoError(t, err)
		assert.True(t, stored.Deleted())
		assert.Equal(t, "duplicate entry", stored.DeletedReason)
	})

	t.Run("restore", func(t *testing.T) {
		req := authedRequest(http.MethodPost, "/v1/donations/"+seeded.ID+"/restore", "", testAdminID, domain.RoleAdmin)
		req = withURLParam(req, "id", seeded.ID)
		rec := httptest.NewRecorder()
		app.DonationsRestore(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := deps.donations.GetByID(context.Background(), seeded.ID)
		require.NoError(t, err)
		assert.False(t, stored.Deleted())
	})
}

func TestDonationsSendReceipt(t *testing.T) {
	app, deps := newTestApp()
	email := "asha@example.com"
	seeded, err := deps.donations.Create(context.Background(), &domain.Donation{
		DonorName: "Asha Rao", DonorEmail: &email, AmountCents: 5000,
		CategoryID: testCategoryID, PaymentMethod: domain.PaymentCash,
		DonatedAt: time.Now(), OperatorID: testOperatorID,
	})
	require.NoError(t, err)

	req := authedRequest(http.MethodPost, "/v1/donations/"+seeded.ID+"/receipt", "", testOperatorID, domain.RoleOperator)
	req = withURLParam(req, "id", seeded.ID)
	rec := httptest.NewRecorder()
	app.DonationsSendReceipt(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, deps.mailer.calls)
	stored, err := deps.donations.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailSent)
}
