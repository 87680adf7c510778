package http

import (
	"fmt"
	"log/slog"
	"strings"

	seller "github.com/zorroteam/x402-seller"
)

// Gate enforces that a decoded receipt targets this server before any
// facilitator round trip is spent on it: the declared recipient must be the
// configured payee and the declared resource must be the canonical URL.
type Gate struct {
	// PayTo is the configured payee address. Addresses are checksummed for
	// display but semantically case-insensitive, so comparison folds case.
	PayTo string

	// Resource is the canonical resource URL, compared verbatim: scheme,
	// host, and path must all match exactly.
	Resource string

	Logger *slog.Logger
}

// NewGate builds a gate from the server configuration.
func NewGate(cfg *seller.Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{PayTo: cfg.PayTo, Resource: cfg.Resource(), Logger: logger}
}

// Check validates the receipt's payTo and resource, in that order. It has no
// side effects beyond an audit log of the extracted values.
func (g *Gate) Check(exact seller.ExactPayload) error {
	g.Logger.Info("payment receipt received",
		"resource", exact.Resource, "payTo", exact.Conditions.PayTo)

	payTo := exact.Conditions.PayTo
	if payTo == "" || !strings.EqualFold(payTo, g.PayTo) {
		return fmt.Errorf("%w: got %q", seller.ErrBadPayTo, payTo)
	}

	if exact.Resource != g.Resource {
		return fmt.Errorf("%w: got %q", seller.ErrBadResource, exact.Resource)
	}

	return nil
}
