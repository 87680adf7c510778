package http

import (
	"encoding/json"
	"net/http"

	seller "github.com/zorroteam/x402-seller"
)

// BuildRequirements assembles the payment requirements advertised in a 402
// response. Built fresh per request so it always reflects the live
// configuration; it is cheap to construct.
func BuildRequirements(cfg *seller.Config) seller.PaymentRequirement {
	chain := cfg.Chain()
	usdc := cfg.USDCAddress
	if usdc == "" {
		usdc = chain.USDCAddress
	}

	return seller.PaymentRequirement{
		Scheme:            "exact",
		Network:           chain.NetworkID,
		MaxAmountRequired: "2000000", // 2 USDC at 6 decimals
		Resource:          cfg.Resource(),
		Description:       seller.ResourceDescription,
		MimeType:          "application/json",
		PayTo:             cfg.PayTo,
		MaxTimeoutSeconds: 300,
		Asset:             usdc,
		OutputSchema: &seller.OutputSchema{
			Input: seller.InputSchema{
				Type:         "http",
				Method:       "GET",
				QueryParams:  map[string]seller.FieldDef{},
				BodyFields:   map[string]seller.FieldDef{},
				HeaderFields: map[string]seller.FieldDef{},
			},
			Output: map[string]seller.FieldDef{
				"success": {Type: "boolean"},
				"message": {Type: "string"},
				"payer":   {Type: "string"},
			},
		},
		Extra: map[string]interface{}{
			"name":    chain.EIP3009Name,
			"version": chain.EIP3009Version,
		},
	}
}

// sendPaymentRequired writes a 402 response with the payment requirements.
func sendPaymentRequired(w http.ResponseWriter, reason string, requirements ...seller.PaymentRequirement) {
	response := seller.PaymentRequirementsResponse{
		X402Version: 1,
		Error:       reason,
		Accepts:     requirements,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusPaymentRequired)
	// Ignore encoding errors - the 402 status has already been committed
	_ = json.NewEncoder(w).Encode(response)
}

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the uniform {"error": ...} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
