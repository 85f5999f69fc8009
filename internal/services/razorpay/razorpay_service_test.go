package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	s := &RazorpayService{KeySecret: "test-secret"}

	good := sign("test-secret", "order_123", "pay_456")
	assert.True(t, s.VerifySignature("order_123", "pay_456", good))

	// Any tampering with the signed tuple must fail, quietly.
	assert.False(t, s.VerifySignature("order_999", "pay_456", good))
	assert.False(t, s.VerifySignature("order_123", "pay_999", good))
	assert.False(t, s.VerifySignature("order_123", "pay_456", good[:len(good)-2]+"ff"))
	assert.False(t, s.VerifySignature("order_123", "pay_456", ""))

	wrongKey := sign("other-secret", "order_123", "pay_456")
	assert.False(t, s.VerifySignature("order_123", "pay_456", wrongKey))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key-id", user)
		assert.Equal(t, "key-secret", pass)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(50000), req["amount"])
		assert.Equal(t, "INR", req["currency"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_abc123",
			"amount":   50000,
			"currency": "INR",
			"receipt":  req["receipt"],
			"status":   "created",
		})
	}))
	defer srv.Close()

	s := &RazorpayService{
		Client:    &http.Client{Timeout: 5 * time.Second},
		KeyID:     "key-id",
		KeySecret: "key-secret",
		BaseURL:   srv.URL,
	}

	order, err := s.CreateOrder(50000, "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc123", order.ID)
	assert.Equal(t, int64(50000), order.Amount)
	assert.Equal(t, "rcpt_1", order.Receipt)
}

func TestCreateOrderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"description":"Authentication failed"}}`))
	}))
	defer srv.Close()

	s := &RazorpayService{
		Client:  &http.Client{Timeout: 5 * time.Second},
		BaseURL: srv.URL,
	}

	_, err := s.CreateOrder(100, "rcpt_2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
