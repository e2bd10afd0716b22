package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

const erc20ABIJSON = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const defaultReceiptPollInterval = 2 * time.Second

var (
	errInsufficientBalance = errors.New("insufficient USDC balance")
	errDepositReverted     = errors.New("deposit transaction reverted")
)

// ChainClient is the subset of ethclient.Client used for deposits
type ChainClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// BridgeConfig locates the USDC bridge
type BridgeConfig struct {
	ChainID       int64
	BridgeAddress string
	USDCAddress   string
	MinDeposit    string
}

// Depositor funds the venue by transferring USDC to its bridge contract
type Depositor struct {
	cfg          BridgeConfig
	chain        ChainClient
	erc20        abi.ABI
	bridge       common.Address
	usdc         common.Address
	minimum      decimal.Decimal
	pollInterval time.Duration
}

// DepositReceipt reports a mined deposit
type DepositReceipt struct {
	TxHash      common.Hash
	From        common.Address
	Amount      decimal.Decimal
	BlockNumber *big.Int
}

// NewDepositor validates cfg and returns a Depositor over chain
func NewDepositor(cfg BridgeConfig, chain ChainClient) (*Depositor, error) {
	if chain == nil {
		return nil, errChainClientNil
	}
	if cfg.ChainID <= 0 {
		return nil, fmt.Errorf("bridge chain id must be positive, got %d", cfg.ChainID)
	}
	if !common.IsHexAddress(cfg.BridgeAddress) || !common.IsHexAddress(cfg.USDCAddress) {
		return nil, fmt.Errorf("%w: bridge or token address", errInvalidDestination)
	}
	minimum, err := decimal.NewFromString(cfg.MinDeposit)
	if err != nil {
		return nil, fmt.Errorf("minimum deposit %q: %w", cfg.MinDeposit, err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, err
	}
	return &Depositor{
		cfg:          cfg,
		chain:        chain,
		erc20:        parsed,
		bridge:       common.HexToAddress(cfg.BridgeAddress),
		usdc:         common.HexToAddress(cfg.USDCAddress),
		minimum:      minimum,
		pollInterval: defaultReceiptPollInterval,
	}, nil
}

// Balance returns the USDC balance of owner
func (d *Depositor) Balance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	data, err := d.erc20.Pack("balanceOf", owner)
	if err != nil {
		return decimal.Decimal{}, err
	}
	out, err := d.chain.CallContract(ctx, ethereum.CallMsg{To: &d.usdc, Data: data}, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("call balanceOf: %w", err)
	}
	var balance *big.Int
	if err := d.erc20.UnpackIntoInterface(&balance, "balanceOf", out); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode balanceOf: %w", err)
	}
	return decimal.NewFromBigInt(balance, -usdcDecimals), nil
}

// Deposit transfers amount USDC from key's address to the bridge and waits
// for the transaction to be mined
func (d *Depositor) Deposit(ctx context.Context, key *wallet.Key, amount string) (*DepositReceipt, error) {
	if key == nil || key.PrivateKey() == nil {
		return nil, ErrNoSigningKey
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidAmount)
	}
	if value.LessThan(d.minimum) {
		return nil, fmt.Errorf("%w: %s USDC is below the %s USDC minimum", errDepositBelowMinimum, value, d.minimum)
	}
	units, err := ToBaseUnits(amount, usdcDecimals)
	if err != nil {
		return nil, err
	}
	wei, _ := new(big.Int).SetString(units, 10)

	from := key.Address()
	balance, err := d.Balance(ctx, from)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(value) {
		return nil, fmt.Errorf("%w: available %s, required %s", errInsufficientBalance, balance, value)
	}

	data, err := d.erc20.Pack("transfer", d.bridge, wei)
	if err != nil {
		return nil, err
	}
	nonce, err := d.chain.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := d.chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := d.chain.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &d.usdc, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &d.usdc,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(big.NewInt(d.cfg.ChainID)), key.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if err := d.chain.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send deposit: %w", err)
	}
	log.Infof(log.WalletSys, "deposit of %s USDC sent in %s", value, signed.Hash().Hex())

	receipt, err := d.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", errDepositReverted, signed.Hash().Hex())
	}
	return &DepositReceipt{
		TxHash:      signed.Hash(),
		From:        from,
		Amount:      value,
		BlockNumber: receipt.BlockNumber,
	}, nil
}

func (d *Depositor) waitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := d.chain.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("deposit receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
