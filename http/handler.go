package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	seller "github.com/zorroteam/x402-seller"
	"github.com/zorroteam/x402-seller/delivery"
	"github.com/zorroteam/x402-seller/encoding"
	"github.com/zorroteam/x402-seller/validation"
)

// Dispatcher accepts delivery work after the response has been written.
// Implemented by delivery.Queue.
type Dispatcher interface {
	Submit(req delivery.Request) bool
}

// BuyResponse is the acknowledgment body returned to a verified buyer.
// It is the only response this handler ever writes for a paid request;
// delivery happens afterwards in the background and is never reported here.
type BuyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payer   string `json:"payer"`
}

// BuyHandler serves the machine purchase endpoint. The pipeline is: decode
// receipt, gate, facilitator verify and settle, acknowledge, enqueue delivery.
type BuyHandler struct {
	cfg         *seller.Config
	gate        *Gate
	facilitator *FacilitatorClient
	dispatcher  Dispatcher
	logger      *slog.Logger
}

// NewBuyHandler wires the purchase pipeline.
func NewBuyHandler(cfg *seller.Config, facilitator *FacilitatorClient, dispatcher Dispatcher, logger *slog.Logger) *BuyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuyHandler{
		cfg:         cfg,
		gate:        NewGate(cfg, logger),
		facilitator: facilitator,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// ServeHTTP handles GET on the paid resource.
func (h *BuyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("X-PAYMENT")
	if header == "" {
		// Discovery: no receipt yet, advertise the payment requirements.
		h.logger.Info("no payment header provided", "path", r.URL.Path)
		sendPaymentRequired(w, "", BuildRequirements(h.cfg))
		return
	}

	payment, err := encoding.DecodePayment(header)
	if err != nil {
		h.logger.Warn("invalid payment header", "error", err)
		writeError(w, http.StatusBadRequest, "Bad X-PAYMENT")
		return
	}
	exact, err := payment.Exact()
	if err != nil {
		h.logger.Warn("invalid payment payload", "error", err)
		writeError(w, http.StatusBadRequest, "Bad X-PAYMENT")
		return
	}

	if err := h.gate.Check(exact); err != nil {
		h.logger.Warn("gate rejected receipt", "error", err)
		switch {
		case errors.Is(err, seller.ErrBadPayTo):
			writeError(w, http.StatusForbidden, "Forbidden: bad payTo")
		default:
			writeError(w, http.StatusForbidden, "Forbidden: bad resource")
		}
		return
	}

	requirement := BuildRequirements(h.cfg)

	verifyResp, err := h.facilitator.Verify(r.Context(), payment, requirement)
	if err != nil {
		h.facilitatorFailure(w, "verification", err)
		return
	}
	if !verifyResp.IsValid {
		h.logger.Warn("payment verification failed", "reason", verifyResp.InvalidReason)
		sendPaymentRequired(w, verifyResp.InvalidReason, requirement)
		return
	}
	h.logger.Info("payment verified", "payer", verifyResp.Payer)

	settlementResp, err := h.facilitator.Settle(r.Context(), payment, requirement)
	if err != nil {
		h.facilitatorFailure(w, "settlement", err)
		return
	}
	if !settlementResp.Success {
		h.logger.Warn("settlement unsuccessful", "reason", settlementResp.ErrorReason)
		sendPaymentRequired(w, settlementResp.ErrorReason, requirement)
		return
	}
	h.logger.Info("payment settled", "transaction", settlementResp.Transaction)

	payer := resolvePayer(r, exact)
	if payer == "" {
		writeError(w, http.StatusBadRequest, "Payer address required")
		return
	}
	if err := validation.ValidateAddress(payer); err != nil {
		h.logger.Warn("unusable payer address", "payer", payer, "error", err)
		writeError(w, http.StatusBadRequest, "Payer address required")
		return
	}

	// Acknowledge now; delivery latency must not sit on the payment path.
	// This is the single response for this request.
	writeJSON(w, http.StatusOK, BuyResponse{
		Success: true,
		Message: "Payment accepted, delivering token...",
		Payer:   payer,
	})

	h.dispatcher.Submit(delivery.Request{Payer: common.HexToAddress(payer)})
}

// Head answers probes for payment requirements: same status as an unpaid
// GET, no body.
func (h *BuyHandler) Head(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusPaymentRequired)
}

// facilitatorFailure maps a facilitator error onto the client response.
// A non-200 facilitator verdict is passed through verbatim, status and body;
// transport failures become a 503.
func (h *BuyHandler) facilitatorFailure(w http.ResponseWriter, op string, err error) {
	var fe *FacilitatorError
	if errors.As(err, &fe) {
		h.logger.Warn("facilitator rejected payment", "op", op, "status", fe.StatusCode)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(fe.StatusCode)
		_, _ = w.Write(fe.Body)
		return
	}

	h.logger.Error("facilitator unreachable", "op", op, "error", err)
	writeError(w, http.StatusServiceUnavailable, "Payment "+op+" failed")
}

// resolvePayer picks the delivery address: an explicit operational override
// (query param, then header) wins over the receipt's authorization.
func resolvePayer(r *http.Request, exact seller.ExactPayload) string {
	if payer := r.URL.Query().Get("payer"); payer != "" {
		return payer
	}
	if payer := r.Header.Get("X-Payer-Address"); payer != "" {
		return payer
	}
	return exact.Authorization.From
}
