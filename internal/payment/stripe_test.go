package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()

	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})

	return sp.Header, sp.Payload
}

func eventJSON(id, typ, object string) string {
	return fmt.Sprintf(
		`{"id":%q,"object":"event","api_version":"2025-03-31.basil","type":%q,"data":{"object":%s}}`,
		id, typ, object,
	)
}

func TestStripeWebhookParse(t *testing.T) {
	w := NewStripeWebhook(testSecret)

	tests := []struct {
		name       string
		typ        string
		object     string
		wantKind   EventKind
		wantIntent string
		wantOrder  string
	}{
		{
			name:       "succeeded",
			typ:        "payment_intent.succeeded",
			object:     `{"id":"pi_1","object":"payment_intent","metadata":{"order_id":"o-1"}}`,
			wantKind:   KindPaymentSucceeded,
			wantIntent: "pi_1",
			wantOrder:  "o-1",
		},
		{
			name:       "failed",
			typ:        "payment_intent.payment_failed",
			object:     `{"id":"pi_2","object":"payment_intent","metadata":{"order_id":"o-2"}}`,
			wantKind:   KindPaymentFailed,
			wantIntent: "pi_2",
			wantOrder:  "o-2",
		},
		{
			name:       "canceled",
			typ:        "payment_intent.canceled",
			object:     `{"id":"pi_3","object":"payment_intent","metadata":{}}`,
			wantKind:   KindPaymentCanceled,
			wantIntent: "pi_3",
		},
		{
			name:       "refunded",
			typ:        "charge.refunded",
			object:     `{"id":"ch_1","object":"charge","payment_intent":"pi_4","metadata":{}}`,
			wantKind:   KindChargeRefunded,
			wantIntent: "pi_4",
		},
		{
			name:     "other",
			typ:      "customer.created",
			object:   `{"id":"cus_1","object":"customer"}`,
			wantKind: KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, payload := signed(t, eventJSON("evt_"+tt.name, tt.typ, tt.object))

			ev, err := w.Parse(payload, header)
			require.NoError(t, err)

			assert.Equal(t, "evt_"+tt.name, ev.ID)
			assert.Equal(t, tt.typ, ev.Type)
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, tt.wantIntent, ev.PaymentIntentID)
			assert.Equal(t, tt.wantOrder, ev.OrderID)
		})
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	header, payload := signed(t, eventJSON("evt_x", "payment_intent.succeeded", `{"id":"pi_1"}`))

	_, err := NewStripeWebhook("whsec_other").Parse(payload, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = NewStripeWebhook(testSecret).Parse(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
