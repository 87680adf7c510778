// Package evm holds the server-side blockchain collaborators: the signing
// wallet and the transaction-submitting client used by the delivery pipeline.
package evm

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	seller "github.com/zorroteam/x402-seller"
)

// Wallet is the server-held signing credential. It is constructed once at
// startup and injected into the chain client; nothing else touches the key.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// WalletOption configures a Wallet.
type WalletOption func(*Wallet) error

// NewWallet creates a wallet for the given chain ID with the given options.
// Exactly one key source option must be supplied.
func NewWallet(chainID *big.Int, opts ...WalletOption) (*Wallet, error) {
	w := &Wallet{chainID: chainID}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	if w.privateKey == nil {
		return nil, seller.ErrInvalidKey
	}
	if w.chainID == nil || w.chainID.Sign() <= 0 {
		return nil, fmt.Errorf("%w: missing chain ID", seller.ErrInvalidKey)
	}

	w.address = crypto.PubkeyToAddress(w.privateKey.PublicKey)
	return w, nil
}

// WithPrivateKey sets the signing key from a hex string.
func WithPrivateKey(hexKey string) WalletOption {
	return func(w *Wallet) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")

		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return seller.ErrInvalidKey
		}

		w.privateKey = privateKey
		return nil
	}
}

// WithKeystore loads the signing key from an encrypted keystore file.
func WithKeystore(keystorePath, password string) WalletOption {
	return func(w *Wallet) error {
		data, err := os.ReadFile(keystorePath)
		if err != nil {
			return fmt.Errorf("%w: %v", seller.ErrInvalidKeystore, err)
		}

		var keyJSON struct {
			Crypto keystore.CryptoJSON `json:"crypto"`
		}
		if err := json.Unmarshal(data, &keyJSON); err != nil {
			return fmt.Errorf("%w: invalid JSON format", seller.ErrInvalidKeystore)
		}

		privateKeyBytes, err := keystore.DecryptDataV3(keyJSON.Crypto, password)
		if err != nil {
			return fmt.Errorf("%w: decryption failed", seller.ErrInvalidKeystore)
		}

		privateKey, err := crypto.ToECDSA(privateKeyBytes)
		if err != nil {
			return fmt.Errorf("%w: invalid private key", seller.ErrInvalidKeystore)
		}

		w.privateKey = privateKey
		return nil
	}
}

// WithMnemonic derives the signing key from a BIP-39 mnemonic phrase.
// The accountIndex parameter selects which HD account to use (typically 0).
// Derivation path: m/44'/60'/0'/0/{accountIndex}
func WithMnemonic(mnemonic string, accountIndex uint32) WalletOption {
	return func(w *Wallet) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return seller.ErrInvalidMnemonic
		}

		seed := bip39.NewSeed(mnemonic, "")

		privateKey, err := deriveEthereumKey(seed, accountIndex)
		if err != nil {
			return fmt.Errorf("%w: %v", seller.ErrInvalidMnemonic, err)
		}

		w.privateKey = privateKey
		return nil
	}
}

// Address returns the wallet's Ethereum address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain ID transactions are signed for.
func (w *Wallet) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// SignTx signs a transaction for the wallet's chain.
func (w *Wallet) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.privateKey)
}

// FromConfig builds a wallet from the configured signing credential.
// PRIVATE_KEY wins over WALLET_MNEMONIC, which wins over the keystore pair.
func FromConfig(cfg *seller.Config) (*Wallet, error) {
	chainID := cfg.Chain().ChainID
	switch {
	case cfg.PrivateKey != "":
		return NewWallet(chainID, WithPrivateKey(cfg.PrivateKey))
	case cfg.Mnemonic != "":
		return NewWallet(chainID, WithMnemonic(cfg.Mnemonic, 0))
	case cfg.KeystorePath != "":
		return NewWallet(chainID, WithKeystore(cfg.KeystorePath, cfg.KeystorePassword))
	default:
		return nil, seller.ErrInvalidKey
	}
}

// deriveEthereumKey derives an Ethereum private key from a BIP-39 seed.
// Follows BIP44 path: m/44'/60'/0'/0/{index}
func deriveEthereumKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}

	// Path: m/44'/60'/0'/0/{index}
	key, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, err
	}

	key, err = key.NewChildKey(bip32.FirstHardenedChild + 60)
	if err != nil {
		return nil, err
	}

	key, err = key.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, err
	}

	key, err = key.NewChildKey(0)
	if err != nil {
		return nil, err
	}

	key, err = key.NewChildKey(index)
	if err != nil {
		return nil, err
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, err
	}

	return privateKey, nil
}
