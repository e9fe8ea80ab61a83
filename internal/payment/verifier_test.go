package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

const testSecret = "whsec_test_secret"

func signPayload(secret string, payload []byte, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func completedPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "amount_total": 250000,
    "currency": "usd",
    "customer_details": {"email": "a@x.io"},
    "metadata": {"cohort_id": "C1", "cohort_slug": "spring-2026"}
  }}
}`, eventID))
}

func TestVerifyCheckoutCompleted(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	payload := completedPayload("evt_1")

	evt, err := v.Verify(payload, signPayload(testSecret, payload, time.Now()))
	require.NoError(t, err)

	completed, ok := evt.(*CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "evt_1", completed.ID())
	assert.Equal(t, "cs_test_1", completed.SessionID)
	assert.Equal(t, "a@x.io", completed.Email)
	assert.Equal(t, "C1", completed.OfferID)
	assert.Equal(t, "spring-2026", completed.OfferSlug)
	assert.Equal(t, int64(250000), completed.AmountTotal)
	assert.Equal(t, "usd", completed.Currency)
}

func TestVerifyOtherEventsAreIgnored(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)

	evt, err := v.Verify(payload, signPayload(testSecret, payload, time.Now()))
	require.NoError(t, err)

	ignored, ok := evt.(*Ignored)
	require.True(t, ok)
	assert.Equal(t, "evt_2", ignored.ID())
	assert.Equal(t, "invoice.paid", ignored.Type())
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	payload := completedPayload("evt_1")

	cases := map[string]string{
		"missing":    "",
		"malformed":  "not-a-signature",
		"wrong key":  signPayload("whsec_other", payload, time.Now()),
		"stale":      signPayload(testSecret, payload, time.Now().Add(-time.Hour)),
		"whitespace": "   ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			evt, err := v.Verify(payload, header)
			assert.Nil(t, evt)
			assert.True(t, appErrors.Is(err, appErrors.ErrSignatureInvalid))
		})
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	header := signPayload(testSecret, completedPayload("evt_1"), time.Now())

	_, err := v.Verify(completedPayload("evt_forged"), header)
	assert.True(t, appErrors.Is(err, appErrors.ErrSignatureInvalid))
}

func TestVerifyFallsBackToCustomerEmail(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_3","object":"checkout.session","customer_email":" b@x.io ","metadata":{}}}}`)

	evt, err := v.Verify(payload, signPayload(testSecret, payload, time.Now()))
	require.NoError(t, err)
	completed := evt.(*CheckoutCompleted)
	assert.Equal(t, "b@x.io", completed.Email)
	assert.Empty(t, completed.OfferID)
}
