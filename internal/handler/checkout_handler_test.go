package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type checkoutServiceMock struct {
	got        models.CheckoutRequest
	resp       *models.CheckoutResponse
	err        error
	summary    *models.CheckoutSessionSummary
	summaryErr error
}

func (m *checkoutServiceMock) CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	m.got = req
	return m.resp, m.err
}

func (m *checkoutServiceMock) GetSessionSummary(ctx context.Context, sessionID string) (*models.CheckoutSessionSummary, error) {
	return m.summary, m.summaryErr
}

func TestCheckoutHandlerCreate(t *testing.T) {
	svc := &checkoutServiceMock{resp: &models.CheckoutResponse{URL: "https://checkout.stripe.com/c/pay/cs_1"}}
	h := NewCheckoutHandler(svc)

	c, w := newTestContext(http.MethodPost, "/checkout", []byte(`{"cohortSlug":"spring-2026"}`))
	h.Create(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`, w.Body.String())
	assert.Equal(t, "spring-2026", svc.got.CohortSlug)
}

func TestCheckoutHandlerErrorsAreFlat(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"unknown cohort", appErrors.ErrOfferNotFound, http.StatusNotFound, `{"error":"Cohort not found"}`},
		{"closed cohort", appErrors.ErrOfferUnavailable, http.StatusBadRequest, `{"error":"Enrollment is not open for this cohort"}`},
		{"provider down", appErrors.ErrCheckoutFailed, http.StatusInternalServerError, `{"error":"Failed to create checkout session"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewCheckoutHandler(&checkoutServiceMock{err: tc.err})
			c, w := newTestContext(http.MethodPost, "/checkout", []byte(`{"cohortSlug":"spring-2026"}`))
			h.Create(c)

			require.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestCheckoutHandlerInvalidBody(t *testing.T) {
	h := NewCheckoutHandler(&checkoutServiceMock{})
	c, w := newTestContext(http.MethodPost, "/checkout", []byte(`not json`))
	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Cohort is required"}`, w.Body.String())
}

func TestCheckoutHandlerSession(t *testing.T) {
	h := NewCheckoutHandler(&checkoutServiceMock{summary: &models.CheckoutSessionSummary{SessionID: "cs_1", Status: "complete", PaymentStatus: "paid"}})

	c, w := newTestContext(http.MethodGet, "/checkout/session?session_id=cs_1", nil)
	h.Session(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_status":"paid"`)

	c, w = newTestContext(http.MethodGet, "/checkout/session", nil)
	h.Session(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
