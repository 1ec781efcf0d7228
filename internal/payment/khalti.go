// Package payment implements the Khalti e-payment client used to
// initiate payments and verify callbacks server-side.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/merobus/merobus-backend/internal/booking"
)

// DefaultBaseURL is Khalti's production e-payment API root.
const DefaultBaseURL = "https://a.khalti.com/api/v2"

// KhaltiClient talks to the Khalti e-payment API. It satisfies
// booking.PaymentProvider.
type KhaltiClient struct {
	secret  string
	baseURL string
	http    *http.Client
}

// NewKhalti returns a client authorized with the given secret key. An
// empty baseURL selects the production API.
func NewKhalti(secret, baseURL string) *KhaltiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &KhaltiClient{
		secret:  secret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Initiate registers a payment with Khalti and returns the pidx token
// and the URL the rider is redirected to.
func (k *KhaltiClient) Initiate(ctx context.Context, orderID, orderName, returnURL string, amountPaisa uint64) (pidx, paymentURL string, err error) {
	reqBody := map[string]interface{}{
		"return_url":          returnURL,
		"website_url":         returnURL,
		"amount":              amountPaisa,
		"purchase_order_id":   orderID,
		"purchase_order_name": orderName,
	}
	var resp struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
	}
	if err := k.post(ctx, "/epayment/initiate/", reqBody, &resp); err != nil {
		return "", "", err
	}
	if resp.Pidx == "" || resp.PaymentURL == "" {
		return "", "", fmt.Errorf("khalti initiate: incomplete response")
	}
	return resp.Pidx, resp.PaymentURL, nil
}

// Verify looks a payment up by its pidx token. The caller compares the
// returned status, transaction id and amount against its stored
// expectation.
func (k *KhaltiClient) Verify(ctx context.Context, token string) (*booking.VerifiedPayment, error) {
	var resp struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		TotalAmount   uint64 `json:"total_amount"`
	}
	if err := k.post(ctx, "/epayment/lookup/", map[string]string{"pidx": token}, &resp); err != nil {
		return nil, err
	}
	return &booking.VerifiedPayment{
		Status:        resp.Status,
		TransactionID: resp.TransactionID,
		AmountPaisa:   resp.TotalAmount,
	}, nil
}

func (k *KhaltiClient) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+k.secret)

	res, err := k.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("khalti %s: status %d", path, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
