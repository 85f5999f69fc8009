package razorpay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// RazorpayService isolates the payment provider. It creates remote orders
// and verifies payment signatures; it keeps no state of its own.
type RazorpayService struct {
	Client    *http.Client
	KeyID     string
	KeySecret string
	BaseURL   string
}

func NewRazorpayService() *RazorpayService {
	baseURL := os.Getenv("RAZORPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}

	return &RazorpayService{
		Client:    &http.Client{Timeout: 15 * time.Second},
		KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		BaseURL:   baseURL,
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"` // provider minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder opens a payment order with the provider. The returned Order.ID
// is what the client pays against and what the signature later covers.
func (s *RazorpayService) CreateOrder(amount int64, receipt string) (*Order, error) {
	reqBody := orderRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  receipt,
	}
	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", s.BaseURL+"/orders", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.KeyID, s.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay error: status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var order Order
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}

	return &order, nil
}

// VerifySignature recomputes HMAC-SHA256 over "orderID|paymentID" with the
// key secret and compares it to the supplied signature. A mismatch returns
// false, never an error: this is a trust boundary, not a fault path. The
// comparison is constant time so it cannot leak the expected digest.
func (s *RazorpayService) VerifySignature(orderID, paymentID, signature string) bool {
	h := hmac.New(sha256.New, []byte(s.KeySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
