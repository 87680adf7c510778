package seller

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// FieldDef defines the schema for a single field in the advertised response.
type FieldDef struct {
	Type        string              `json:"type,omitempty"`
	Required    bool                `json:"required,omitempty"`
	Description string              `json:"description,omitempty"`
	Properties  map[string]FieldDef `json:"properties,omitempty"`
}

// InputSchema defines the expected structure of the client request.
type InputSchema struct {
	Type         string              `json:"type"`
	Method       string              `json:"method"`
	QueryParams  map[string]FieldDef `json:"queryParams"`
	BodyFields   map[string]FieldDef `json:"bodyFields"`
	HeaderFields map[string]FieldDef `json:"headerFields"`
}

// OutputSchema defines the expected structure of the server response.
type OutputSchema struct {
	Input  InputSchema         `json:"input"`
	Output map[string]FieldDef `json:"output"`
}

// PaymentRequirement is a single payment option advertised in a 402 response.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (always "exact" here).
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the canonical URL of the protected resource.
	Resource string `json:"resource"`

	// Description is a human-readable payment description.
	Description string `json:"description"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Asset is the payment token contract address.
	Asset string `json:"asset"`

	// OutputSchema describes the response the buyer receives.
	OutputSchema *OutputSchema `json:"outputSchema,omitempty"`

	// Extra carries scheme-specific data (EIP-3009 domain name and version).
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequirementsResponse is the complete 402 response body.
type PaymentRequirementsResponse struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Error is an optional human-readable error message.
	Error string `json:"error,omitempty"`

	// Accepts is the list of payment options the server will accept.
	Accepts []PaymentRequirement `json:"accepts"`
}

// PaymentPayload is the signed payment receipt supplied by the caller in the
// X-PAYMENT header. The scheme-specific body is kept as raw JSON so that the
// exact client bytes can be forwarded to the facilitator unchanged; use Exact
// to project out the fields this server inspects.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme,omitempty"`

	// Network is the blockchain network identifier.
	Network string `json:"network,omitempty"`

	// Payload is the scheme-specific signed payment data, verbatim.
	Payload json.RawMessage `json:"payload"`
}

// ExactPayload is the projection of an "exact" scheme payload consumed by the
// gate and the delivery pipeline. Fields the server never reads are omitted.
type ExactPayload struct {
	// Resource is the resource URL the receipt was issued for.
	Resource string `json:"resource"`

	// Conditions carries the payment conditions the receipt commits to.
	Conditions PaymentConditions `json:"conditions"`

	// Authorization carries the transfer authorization.
	Authorization TransferAuthorization `json:"authorization"`
}

// PaymentConditions is the conditions block of an exact payload.
type PaymentConditions struct {
	// PayTo is the address designated to receive the payment.
	PayTo string `json:"payTo"`
}

// TransferAuthorization is the authorization block of an exact payload.
type TransferAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to,omitempty"`

	// Value is the payment amount in atomic units.
	Value string `json:"value,omitempty"`
}

// Exact decodes the raw payload into its exact-scheme projection.
func (p PaymentPayload) Exact() (ExactPayload, error) {
	var exact ExactPayload
	if len(p.Payload) == 0 {
		return exact, fmt.Errorf("%w: empty payload", ErrMalformedHeader)
	}
	if err := json.Unmarshal(p.Payload, &exact); err != nil {
		return exact, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	return exact, nil
}

// SettlementResponse is the facilitator's response after payment settlement.
type SettlementResponse struct {
	// Success indicates whether the payment was successfully settled.
	Success bool `json:"success"`

	// ErrorReason provides details if the payment failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network"`

	// Payer is the address that made the payment.
	Payer string `json:"payer"`
}

// FeeTier is a DEX liquidity-pool fee level, expressed in hundredths of a
// basis point as the V3 router encodes it (500 = 0.05%).
type FeeTier uint32

const (
	FeeTier005 FeeTier = 500
	FeeTier03  FeeTier = 3000
	FeeTier1   FeeTier = 10000
)

// FeeTiers is the fixed ascending order in which swap pools are attempted.
var FeeTiers = []FeeTier{FeeTier005, FeeTier03, FeeTier1}

// String renders the tier as a human-readable percentage for logs.
func (f FeeTier) String() string {
	switch f {
	case FeeTier005:
		return "0.05%"
	case FeeTier03:
		return "0.3%"
	case FeeTier1:
		return "1%"
	default:
		return fmt.Sprintf("%d/1000000", f)
	}
}

// ParseUnits converts a decimal amount string to a *big.Int in atomic units,
// using integer arithmetic only. For example, "1.5" with 6 decimals becomes
// 1500000. More fractional digits than the scale allows is an error.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, ErrInvalidAmount
	}
	// Right-pad the fractional part to the full scale.
	frac += strings.Repeat("0", decimals-len(frac))

	result, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return result, nil
}

// FormatUnits converts a *big.Int in atomic units to a decimal string.
// For example, 1500000 with 6 decimals becomes "1.500000".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(value, scale, new(big.Int))
	if decimals == 0 {
		return whole.String()
	}
	return fmt.Sprintf("%s.%0*s", whole.String(), decimals, frac.String())
}
