package http

import (
	"errors"
	"log/slog"
	"testing"

	seller "github.com/zorroteam/x402-seller"
)

func newTestGate() *Gate {
	return &Gate{
		PayTo:    "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
		Resource: "https://www.zorro.team/api/buy",
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name     string
		payTo    string
		resource string
		wantErr  error
	}{
		{
			"exact match",
			"0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
			"https://www.zorro.team/api/buy",
			nil,
		},
		{
			"payTo case folded",
			"0x209693bc6afc0c5328ba36faf03c514ef312287c",
			"https://www.zorro.team/api/buy",
			nil,
		},
		{
			"wrong payTo",
			"0x857b06519E91e3A54538791bDbb0E22373e36b66",
			"https://www.zorro.team/api/buy",
			seller.ErrBadPayTo,
		},
		{
			"empty payTo",
			"",
			"https://www.zorro.team/api/buy",
			seller.ErrBadPayTo,
		},
		{
			"wrong resource host",
			"0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
			"https://evil.example/api/buy",
			seller.ErrBadResource,
		},
		{
			"trailing slash on resource",
			"0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
			"https://www.zorro.team/api/buy/",
			seller.ErrBadResource,
		},
		{
			"http scheme",
			"0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
			"http://www.zorro.team/api/buy",
			seller.ErrBadResource,
		},
		{
			// payTo is checked first, so a doubly-bad receipt reports payTo.
			"both wrong reports payTo",
			"0x857b06519E91e3A54538791bDbb0E22373e36b66",
			"https://evil.example/api/buy",
			seller.ErrBadPayTo,
		},
	}

	gate := newTestGate()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exact := seller.ExactPayload{Resource: tt.resource}
			exact.Conditions.PayTo = tt.payTo

			err := gate.Check(exact)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Check failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
