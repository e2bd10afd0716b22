package hyperliquid

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBridge = "0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7"
	testUSDC   = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
)

type fakeChain struct {
	mu       sync.Mutex
	balance  *big.Int
	pending  int
	status   uint64
	sent     []*ethtypes.Transaction
	sendErr  error
	receipts int
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || *msg.To != common.HexToAddress(testUSDC) {
		return nil, errors.New("unexpected contract")
	}
	return common.LeftPadBytes(f.balance.Bytes(), 32), nil
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(100_000_000), nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 65000, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts++
	if f.receipts <= f.pending {
		return nil, ethereum.NotFound
	}
	return &ethtypes.Receipt{Status: f.status, BlockNumber: big.NewInt(1234)}, nil
}

func testBridgeConfig() BridgeConfig {
	return BridgeConfig{ChainID: 42161, BridgeAddress: testBridge, USDCAddress: testUSDC, MinDeposit: "5"}
}

func newTestDepositor(t *testing.T, chain *fakeChain) *Depositor {
	t.Helper()
	d, err := NewDepositor(testBridgeConfig(), chain)
	require.NoError(t, err, "NewDepositor must not error")
	d.pollInterval = time.Millisecond
	return d
}

func TestNewDepositor(t *testing.T) {
	t.Parallel()
	_, err := NewDepositor(testBridgeConfig(), nil)
	assert.ErrorIs(t, err, errChainClientNil)

	cfg := testBridgeConfig()
	cfg.BridgeAddress = "bridge"
	_, err = NewDepositor(cfg, new(fakeChain))
	assert.ErrorIs(t, err, errInvalidDestination)

	cfg = testBridgeConfig()
	cfg.ChainID = 0
	_, err = NewDepositor(cfg, new(fakeChain))
	assert.Error(t, err)

	cfg = testBridgeConfig()
	cfg.MinDeposit = "five"
	_, err = NewDepositor(cfg, new(fakeChain))
	assert.Error(t, err)
}

func TestDeposit(t *testing.T) {
	t.Parallel()
	chain := &fakeChain{balance: big.NewInt(50_000_000), pending: 2, status: ethtypes.ReceiptStatusSuccessful}
	d := newTestDepositor(t, chain)
	key := testKey(t)

	bal, err := d.Balance(t.Context(), key.Address())
	require.NoError(t, err)
	assert.Equal(t, "50", bal.String())

	receipt, err := d.Deposit(t.Context(), key, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", receipt.Amount.String())
	assert.Equal(t, key.Address(), receipt.From)
	assert.Equal(t, int64(1234), receipt.BlockNumber.Int64())
	assert.Equal(t, 3, chain.receipts, "receipt should be polled until mined")

	require.Len(t, chain.sent, 1)
	tx := chain.sent[0]
	assert.Equal(t, receipt.TxHash, tx.Hash())
	assert.Equal(t, common.HexToAddress(testUSDC), *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	from, err := ethtypes.Sender(ethtypes.NewEIP155Signer(big.NewInt(42161)), tx)
	require.NoError(t, err)
	assert.Equal(t, key.Address(), from, "transaction should be signed by the key")

	args, err := d.erc20.Methods["transfer"].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, common.HexToAddress(testBridge), args[0])
	amount, ok := args[1].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, int64(12_500_000), amount.Int64())
}

func TestDepositLocalFailures(t *testing.T) {
	t.Parallel()
	chain := &fakeChain{balance: big.NewInt(1_000_000), status: ethtypes.ReceiptStatusSuccessful}
	d := newTestDepositor(t, chain)
	key := testKey(t)

	_, err := d.Deposit(t.Context(), nil, "10")
	assert.ErrorIs(t, err, ErrNoSigningKey)
	_, err = d.Deposit(t.Context(), key, "4.99")
	assert.ErrorIs(t, err, errDepositBelowMinimum)
	_, err = d.Deposit(t.Context(), key, "ten")
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = d.Deposit(t.Context(), key, "10")
	assert.ErrorIs(t, err, errInsufficientBalance)
	assert.Empty(t, chain.sent, "nothing should be broadcast")
}

func TestDepositReverted(t *testing.T) {
	t.Parallel()
	chain := &fakeChain{balance: big.NewInt(50_000_000), status: ethtypes.ReceiptStatusFailed}
	d := newTestDepositor(t, chain)
	_, err := d.Deposit(t.Context(), testKey(t), "10")
	assert.ErrorIs(t, err, errDepositReverted)
}

func TestDepositWaitCancelled(t *testing.T) {
	t.Parallel()
	chain := &fakeChain{balance: big.NewInt(50_000_000), pending: 1 << 30}
	d := newTestDepositor(t, chain)
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Deposit(ctx, testKey(t), "10")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
