package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patentx-lab/backend/pkg/xcontext"
)

// PaymentCaller talks to the payment provider. Refunds are issued against
// the payment intent recorded at contribution time.
type PaymentCaller interface {
	Refund(ctx context.Context, paymentIntent string, amount float64) error
}

type paymentCaller struct {
	client *http.Client
}

func NewPaymentCaller() *paymentCaller {
	return &paymentCaller{client: &http.Client{Timeout: 30 * time.Second}}
}

type refundRequest struct {
	PaymentIntent string  `json:"payment_intent"`
	Amount        float64 `json:"amount"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *paymentCaller) Refund(ctx context.Context, paymentIntent string, amount float64) error {
	cfg := xcontext.Configs(ctx).Payment

	body, err := json.Marshal(refundRequest{PaymentIntent: paymentIntent, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, cfg.Endpoint+"/refunds", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	result, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}

	var resp refundResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("invalid refund response (status %d): %w", result.StatusCode, err)
	}

	if result.StatusCode != http.StatusOK {
		return fmt.Errorf("refund rejected (status %d): %s", result.StatusCode, resp.Error.Message)
	}

	return nil
}
