package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// HostedCheckout talks to the hosted payment page over its HTTP API.
type HostedCheckout struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.SugaredLogger
}

func NewHostedCheckout(baseURL, apiKey string, logger *zap.SugaredLogger) *HostedCheckout {
	return &HostedCheckout{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

type sessionResponse struct {
	CheckoutURL string `json:"checkout_url"`
	ErrorCode   string `json:"error_code"`
	Message     string `json:"message"`
}

func (h *HostedCheckout) Launch(ctx context.Context, req LaunchRequest) (*Launch, error) {
	body := map[string]interface{}{
		"external_order_id": req.ExternalOrderID,
		"amount":            req.Amount,
		"currency":          req.Currency,
		"success_url":       req.SuccessURL,
		"failure_url":       req.FailureURL,
		"buyer_name":        req.BuyerName,
		"buyer_email":       req.BuyerEmail,
	}

	var resp sessionResponse
	status, err := h.post(ctx, "/v1/checkout/sessions", "", body, &resp)
	if err != nil {
		return nil, &GatewayError{Op: "launch", Message: err.Error()}
	}
	if status != http.StatusOK {
		if resp.ErrorCode == "user_aborted" {
			return nil, ErrUserAborted
		}
		return nil, &GatewayError{Op: "launch", StatusCode: status, Message: resp.Message}
	}

	png, err := qrcode.Encode(resp.CheckoutURL, qrcode.Medium, 256)
	if err != nil {
		// the checkout URL alone is enough to proceed
		h.logger.Warnw("failed to render checkout QR", "external_order_id", req.ExternalOrderID, "error", err)
		png = nil
	}

	return &Launch{CheckoutURL: resp.CheckoutURL, QRCodePNG: png}, nil
}

type confirmResponse struct {
	Approved       bool   `json:"approved"`
	PaymentRef     string `json:"payment_ref"`
	DeclineCode    string `json:"decline_code"`
	DeclineMessage string `json:"decline_message"`
	Message        string `json:"message"`
}

func (h *HostedCheckout) Confirm(ctx context.Context, externalOrderID, transactionKey string, amount int64, idempotencyKey string) (*ConfirmResult, error) {
	body := map[string]interface{}{
		"external_order_id": externalOrderID,
		"transaction_key":   transactionKey,
		"amount":            amount,
	}

	var resp confirmResponse
	status, err := h.post(ctx, "/v1/payments/confirm", idempotencyKey, body, &resp)
	if err != nil {
		return nil, &GatewayError{Op: "confirm", Message: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &GatewayError{Op: "confirm", StatusCode: status, Message: resp.Message}
	}

	return &ConfirmResult{
		Approved:       resp.Approved,
		PaymentRef:     resp.PaymentRef,
		DeclineCode:    resp.DeclineCode,
		DeclineMessage: resp.DeclineMessage,
	}, nil
}

type cancelResponse struct {
	Voided  bool   `json:"voided"`
	Message string `json:"message"`
}

func (h *HostedCheckout) Cancel(ctx context.Context, externalOrderID, reason string) (*CancelResult, error) {
	body := map[string]interface{}{
		"external_order_id": externalOrderID,
		"reason":            reason,
	}

	var resp cancelResponse
	status, err := h.post(ctx, "/v1/payments/cancel", "", body, &resp)
	if err != nil {
		return nil, &GatewayError{Op: "cancel", Message: err.Error()}
	}
	if status != http.StatusOK {
		return nil, &GatewayError{Op: "cancel", StatusCode: status, Message: resp.Message}
	}

	return &CancelResult{Voided: resp.Voided, Message: resp.Message}, nil
}

func (h *HostedCheckout) post(ctx context.Context, path, idempotencyKey string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("X-Api-Key", h.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
