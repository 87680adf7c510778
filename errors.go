package seller

import "errors"

// Error taxonomy for the purchase pipeline. Errors raised before payment
// verification surface synchronously to the caller; delivery-stage errors are
// logged and trigger fallthrough to the next stage, never a second response.

var (
	// ErrMalformedHeader indicates the X-PAYMENT header could not be decoded.
	ErrMalformedHeader = errors.New("malformed payment header")

	// ErrBadPayTo indicates the receipt's payTo does not match the configured payee.
	ErrBadPayTo = errors.New("bad payTo")

	// ErrBadResource indicates the receipt's resource does not match the canonical URL.
	ErrBadResource = errors.New("bad resource")

	// ErrMissingPayer indicates no payer address could be resolved for delivery.
	ErrMissingPayer = errors.New("payer address required")

	// ErrInvalidAmount indicates a malformed token amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrFacilitatorUnavailable indicates the facilitator service could not be reached.
	ErrFacilitatorUnavailable = errors.New("facilitator unavailable")

	// ErrVerificationFailed indicates the facilitator rejected the payment.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrSettlementFailed indicates on-chain settlement failed at the facilitator.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrInsufficientBalance indicates the server wallet holds less than the
	// fixed deliverable quantity.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrSwapNoOutput indicates a swap confirmed but produced no output tokens.
	ErrSwapNoOutput = errors.New("swap produced no output")

	// ErrTransactionReverted indicates a submitted transaction was mined with
	// a failed receipt status.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrMissingConfig indicates a required configuration value is absent.
	ErrMissingConfig = errors.New("missing configuration")

	// ErrInvalidKey indicates the signing credential could not be parsed.
	ErrInvalidKey = errors.New("invalid private key")

	// ErrInvalidMnemonic indicates an invalid BIP-39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrInvalidKeystore indicates an invalid or undecryptable keystore file.
	ErrInvalidKeystore = errors.New("invalid keystore")
)
