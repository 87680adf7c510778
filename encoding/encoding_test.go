package encoding

import (
	"encoding/base64"
	"errors"
	"reflect"
	"testing"

	seller "github.com/zorroteam/x402-seller"
)

const samplePayment = `{"x402Version":1,"scheme":"exact","network":"base","payload":{` +
	`"resource":"https://www.zorro.team/api/buy",` +
	`"conditions":{"payTo":"0x209693Bc6afc0C5328bA36FaF03C514EF312287C"},` +
	`"authorization":{"from":"0x857b06519E91e3A54538791bDbb0E22373e36b66",` +
	`"to":"0x209693Bc6afc0C5328bA36FaF03C514EF312287C","value":"2000000"}}}`

func TestDecodePayment(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(samplePayment))

	payment, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment failed: %v", err)
	}
	if payment.X402Version != 1 {
		t.Errorf("X402Version = %d, want 1", payment.X402Version)
	}
	if payment.Scheme != "exact" {
		t.Errorf("Scheme = %s, want exact", payment.Scheme)
	}
	if payment.Network != "base" {
		t.Errorf("Network = %s, want base", payment.Network)
	}

	exact, err := payment.Exact()
	if err != nil {
		t.Fatalf("Exact failed: %v", err)
	}
	if exact.Authorization.Value != "2000000" {
		t.Errorf("Value = %s, want 2000000", exact.Authorization.Value)
	}
}

// Decoding the same header twice yields identical payloads.
func TestDecodePaymentDeterministic(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(samplePayment))

	first, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("first decode failed: %v", err)
	}
	second, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("second decode failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated decodes of the same header disagree")
	}
}

func TestDecodePaymentInvalidBase64(t *testing.T) {
	_, err := DecodePayment("not base64!!!")
	if !errors.Is(err, seller.ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestDecodePaymentInvalidJSON(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("{not json"))
	_, err := DecodePayment(encoded)
	if !errors.Is(err, seller.ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original, err := DecodePayment(base64.StdEncoding.EncodeToString([]byte(samplePayment)))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	encoded, err := EncodePayment(original)
	if err != nil {
		t.Fatalf("EncodePayment failed: %v", err)
	}
	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment failed: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Error("round trip changed the payload")
	}
}
