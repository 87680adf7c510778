// Package encoding provides utilities for encoding and decoding x402 payment
// receipts carried in the X-PAYMENT header.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	seller "github.com/zorroteam/x402-seller"
)

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
// Decoding is a pure function with no side effects: the same header always
// yields the same payload or the same failure.
//
// Returns an error wrapping seller.ErrMalformedHeader if base64 decoding or
// JSON unmarshaling fails.
func DecodePayment(encoded string) (seller.PaymentPayload, error) {
	var payment seller.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("%w: invalid base64: %v", seller.ErrMalformedHeader, err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("%w: invalid JSON: %v", seller.ErrMalformedHeader, err)
	}

	return payment, nil
}

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string.
//
// Returns an error if JSON marshaling fails.
func EncodePayment(payment seller.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}
