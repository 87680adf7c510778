package seller

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/zorroteam/x402-seller/validation"
)

// Service identity reported on the root route.
const (
	ServiceName    = "X402 Token Purchase API"
	ServiceVersion = "2.0.0"
)

// ResourceDescription is the human-readable description advertised in the
// payment requirements and on the root route.
const ResourceDescription = "Mint 10k $ZORRO tokens with x402 payment protocol. " +
	"Pay 2 USDC on Base mainnet. 100% of proceeds go into LP. " +
	"Pure meme token with no utility."

// buyPath is the machine endpoint path the payment receipt must name.
const buyPath = "/api/buy"

// Config is the full runtime configuration, loaded from the environment.
// A missing or invalid required value is fatal at startup: the process must
// not begin serving traffic with a partial configuration.
type Config struct {
	// Port is the listen port (PORT, default 4021).
	Port string

	// FacilitatorURL is the payment facilitator endpoint
	// (FACILITATOR_URL, default http://localhost:8080).
	FacilitatorURL string

	// PayTo is the address that receives payment funds (WALLET_ADDRESS).
	PayTo string

	// RPCURL is the blockchain JSON-RPC endpoint (RPC_URL).
	RPCURL string

	// USDCAddress is the payment asset contract (USDC_ADDRESS).
	USDCAddress string

	// TokenAddress is the deliverable token contract (CONTRACT_ADDRESS).
	TokenAddress string

	// WETHAddress is the swap output asset contract (WETH_ADDRESS).
	WETHAddress string

	// SwapRouterAddress is the DEX V3 swap router (V3_SWAP_ROUTER02_ADDRESS).
	SwapRouterAddress string

	// PublicDomain is the canonical public base URL (PUBLIC_DOMAIN).
	PublicDomain string

	// PrivateKey is a hex-encoded signing key (PRIVATE_KEY).
	PrivateKey string

	// Mnemonic is a BIP-39 phrase used instead of PrivateKey (WALLET_MNEMONIC).
	Mnemonic string

	// KeystorePath and KeystorePassword select an encrypted keystore file
	// instead of PrivateKey (KEYSTORE_PATH, KEYSTORE_PASSWORD).
	KeystorePath     string
	KeystorePassword string

	// AutoRefund enables the refund stage of the delivery chain
	// (AUTO_REFUND, "true" to enable).
	AutoRefund bool

	// Network selects the chain configuration (NETWORK, default "base").
	Network string
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", "4021"),
		FacilitatorURL:    envOr("FACILITATOR_URL", "http://localhost:8080"),
		PayTo:             os.Getenv("WALLET_ADDRESS"),
		RPCURL:            os.Getenv("RPC_URL"),
		USDCAddress:       os.Getenv("USDC_ADDRESS"),
		TokenAddress:      os.Getenv("CONTRACT_ADDRESS"),
		WETHAddress:       os.Getenv("WETH_ADDRESS"),
		SwapRouterAddress: os.Getenv("V3_SWAP_ROUTER02_ADDRESS"),
		PublicDomain:      os.Getenv("PUBLIC_DOMAIN"),
		PrivateKey:        os.Getenv("PRIVATE_KEY"),
		Mnemonic:          os.Getenv("WALLET_MNEMONIC"),
		KeystorePath:      os.Getenv("KEYSTORE_PATH"),
		KeystorePassword:  os.Getenv("KEYSTORE_PASSWORD"),
		AutoRefund:        os.Getenv("AUTO_REFUND") == "true",
		Network:           envOr("NETWORK", "base"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required value is present and well formed.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"WALLET_ADDRESS", c.PayTo},
		{"RPC_URL", c.RPCURL},
		{"USDC_ADDRESS", c.USDCAddress},
		{"CONTRACT_ADDRESS", c.TokenAddress},
		{"WETH_ADDRESS", c.WETHAddress},
		{"V3_SWAP_ROUTER02_ADDRESS", c.SwapRouterAddress},
		{"PUBLIC_DOMAIN", c.PublicDomain},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingConfig, r.name)
		}
	}

	for _, addr := range []struct {
		name  string
		value string
	}{
		{"WALLET_ADDRESS", c.PayTo},
		{"USDC_ADDRESS", c.USDCAddress},
		{"CONTRACT_ADDRESS", c.TokenAddress},
		{"WETH_ADDRESS", c.WETHAddress},
		{"V3_SWAP_ROUTER02_ADDRESS", c.SwapRouterAddress},
	} {
		if err := validation.ValidateAddress(addr.value); err != nil {
			return fmt.Errorf("%s: %w", addr.name, err)
		}
	}

	if c.PrivateKey == "" && c.Mnemonic == "" && c.KeystorePath == "" {
		return fmt.Errorf("%w: one of PRIVATE_KEY, WALLET_MNEMONIC, KEYSTORE_PATH", ErrMissingConfig)
	}

	if _, err := url.Parse(c.FacilitatorURL); err != nil {
		return fmt.Errorf("FACILITATOR_URL: %w", err)
	}

	return nil
}

// Resource returns the canonical resource URL the payment receipt must name.
func (c *Config) Resource() string {
	return strings.TrimSuffix(c.PublicDomain, "/") + buyPath
}

// CanonicalHost returns the lowercased host portion of the public domain,
// used for canonical-host redirects.
func (c *Config) CanonicalHost() string {
	host := c.PublicDomain
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return strings.ToLower(host)
}

// Chain returns the chain configuration for the configured network.
func (c *Config) Chain() ChainConfig {
	return ChainByNetwork(c.Network)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
