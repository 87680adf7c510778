package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	seller "github.com/zorroteam/x402-seller"
)

// FacilitatorClient talks to the external x402 facilitator that owns payment
// verification and settlement. This server only consumes its verdicts.
type FacilitatorClient struct {
	BaseURL       string
	Client        *http.Client
	VerifyTimeout time.Duration // Timeout for verify operations
	SettleTimeout time.Duration // Timeout for settle operations (longer due to blockchain tx)
}

// NewFacilitatorClient creates a client with the default operation timeouts.
func NewFacilitatorClient(baseURL string) *FacilitatorClient {
	return &FacilitatorClient{
		BaseURL:       baseURL,
		Client:        &http.Client{},
		VerifyTimeout: 5 * time.Second,
		SettleTimeout: 60 * time.Second,
	}
}

// FacilitatorRequest is the request payload sent to the facilitator.
type FacilitatorRequest struct {
	X402Version         int                       `json:"x402Version"`
	PaymentPayload      seller.PaymentPayload     `json:"paymentPayload"`
	PaymentRequirements seller.PaymentRequirement `json:"paymentRequirements"`
}

// VerifyResponse is the response from the facilitator /verify endpoint.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer"`
}

// FacilitatorError is a non-200 facilitator response. Status and body are
// retained so the caller can propagate them to the client verbatim.
type FacilitatorError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *FacilitatorError) Error() string {
	return fmt.Sprintf("facilitator %s failed: status %d", e.Op, e.StatusCode)
}

// Verify asks the facilitator to cryptographically verify a payment
// authorization without executing it.
func (c *FacilitatorClient) Verify(ctx context.Context, payment seller.PaymentPayload, requirement seller.PaymentRequirement) (*VerifyResponse, error) {
	var verifyResp VerifyResponse
	if err := c.post(ctx, "verify", c.VerifyTimeout, payment, requirement, &verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}

// Settle asks the facilitator to execute a verified payment on the blockchain.
func (c *FacilitatorClient) Settle(ctx context.Context, payment seller.PaymentPayload, requirement seller.PaymentRequirement) (*seller.SettlementResponse, error) {
	var settlementResp seller.SettlementResponse
	if err := c.post(ctx, "settle", c.SettleTimeout, payment, requirement, &settlementResp); err != nil {
		return nil, err
	}
	return &settlementResp, nil
}

func (c *FacilitatorClient) post(ctx context.Context, op string, timeout time.Duration, payment seller.PaymentPayload, requirement seller.PaymentRequirement, out interface{}) error {
	req := FacilitatorRequest{
		X402Version:         1,
		PaymentPayload:      payment,
		PaymentRequirements: requirement,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/"+op, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", seller.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &FacilitatorError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
