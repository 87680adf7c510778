package seller

import "math/big"

// ChainConfig contains the chain-specific parameters the storefront needs:
// the x402 network identifier, the EVM chain ID used to sign transactions,
// and the USDC payment-asset parameters.
type ChainConfig struct {
	// NetworkID is the x402 protocol network identifier (e.g., "base").
	NetworkID string

	// ChainID is the EVM chain ID used for transaction signing.
	ChainID *big.Int

	// USDCAddress is the official Circle USDC contract address.
	USDCAddress string

	// USDCDecimals is the number of decimal places for USDC (always 6).
	USDCDecimals int

	// EIP3009Name is the EIP-3009 domain parameter "name".
	EIP3009Name string

	// EIP3009Version is the EIP-3009 domain parameter "version".
	EIP3009Version string
}

var (
	// BaseMainnet is the configuration for Base mainnet, the one network this
	// server sells on.
	BaseMainnet = ChainConfig{
		NetworkID:      "base",
		ChainID:        big.NewInt(8453),
		USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		USDCDecimals:   6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// BaseSepolia is the configuration for Base Sepolia, kept for testnet runs.
	BaseSepolia = ChainConfig{
		NetworkID:      "base-sepolia",
		ChainID:        big.NewInt(84532),
		USDCAddress:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		USDCDecimals:   6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}
)

// ChainByNetwork returns the chain configuration for a network identifier.
// Unknown networks return BaseMainnet, matching the single network the
// storefront is configured to sell on.
func ChainByNetwork(network string) ChainConfig {
	switch network {
	case BaseSepolia.NetworkID:
		return BaseSepolia
	default:
		return BaseMainnet
	}
}
