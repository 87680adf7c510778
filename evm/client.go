package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	seller "github.com/zorroteam/x402-seller"
)

// Client submits token operations from the server wallet and waits for
// on-chain confirmation. Each write is a full round trip: pack calldata,
// sign, send, wait for the receipt. It implements delivery.TokenMover.
type Client struct {
	eth    *ethclient.Client
	wallet *Wallet
	logger *slog.Logger
}

// Dial connects to the JSON-RPC endpoint and binds the wallet to it.
func Dial(ctx context.Context, rpcURL string, wallet *Wallet) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}
	return NewClient(eth, wallet), nil
}

// NewClient wraps an existing ethclient connection.
func NewClient(eth *ethclient.Client, wallet *Wallet) *Client {
	return &Client{
		eth:    eth,
		wallet: wallet,
		logger: slog.Default(),
	}
}

// Close tears down the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Account returns the address transactions are sent from.
func (c *Client) Account() common.Address {
	return c.wallet.Address()
}

// BalanceOf returns the token balance of an account.
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := c.view(ctx, token, erc20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Allowance returns the amount a spender may move on behalf of an owner.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.view(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Approve grants a spender an allowance from the server wallet and waits for
// confirmation.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	return c.transact(ctx, token, data)
}

// Transfer moves tokens from the server wallet and waits for confirmation.
func (c *Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	return c.transact(ctx, token, data)
}

// Mint calls the privileged mint entry point on the deliverable token.
// It reverts unless the server wallet holds the minter role.
func (c *Client) Mint(ctx context.Context, token, to common.Address, amount *big.Int) error {
	data, err := erc20ABI.Pack("mint", to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack mint: %w", err)
	}
	return c.transact(ctx, token, data)
}

// Swap executes a single-pool exactInputSingle swap on the V3 router, with
// the server wallet as recipient, and waits for confirmation.
func (c *Client) Swap(ctx context.Context, router, tokenIn, tokenOut common.Address, fee seller.FeeTier, amountIn *big.Int, deadline time.Time) error {
	params := exactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(fee)),
		Recipient:         c.wallet.Address(),
		Deadline:          big.NewInt(deadline.Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := swapRouterABI.Pack("exactInputSingle", params)
	if err != nil {
		return fmt.Errorf("failed to pack exactInputSingle: %w", err)
	}
	return c.transact(ctx, router, data)
}

// view executes a read-only contract call and unpacks the result.
func (c *Client) view(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return out, nil
}

// transact signs and submits calldata to a contract, then blocks until the
// transaction is mined. A mined-but-reverted receipt is an error.
func (c *Client) transact(ctx context.Context, to common.Address, data []byte) error {
	from := c.wallet.Address()

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("gas estimation failed: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Data:     data,
	})

	signed, err := c.wallet.SignTx(tx)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("transaction submitted", "to", to.Hex(), "tx", signed.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return fmt.Errorf("failed waiting for confirmation: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: tx %s", seller.ErrTransactionReverted, signed.Hash().Hex())
	}

	return nil
}
