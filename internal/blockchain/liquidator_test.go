package blockchain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/aave-liquidator/internal/blockchain/rpc"
)

var liquidatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")

// fakeTransactor implements bind.ContractTransactor and records what was sent.
type fakeTransactor struct {
	code    []byte
	nonce   uint64
	sendErr error

	estimated ethereum.CallMsg
	sent      *types.Transaction
}

func (f *fakeTransactor) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeTransactor) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return f.code, nil
}

func (f *fakeTransactor) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeTransactor) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeTransactor) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeTransactor) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	f.estimated = call
	return 350000, nil
}

func (f *fakeTransactor) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = tx
	return nil
}

func newTestLiquidator(t *testing.T, backend *fakeTransactor) (*Liquidator, common.Address, *big.Int) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(1)
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	require.NoError(t, err)

	l, err := NewLiquidator(backend, LiquidatorConfig{
		Contract: liquidatorAddr,
		From:     auth.From,
		Signer:   auth.Signer,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return l, auth.From, chainID
}

func TestLiquidateSendsSignedCall(t *testing.T) {
	backend := &fakeTransactor{code: []byte{0x60}, nonce: 7}
	l, from, chainID := newTestLiquidator(t, backend)

	hash, err := l.Liquidate(context.Background(), holder)
	require.NoError(t, err)
	require.NotNil(t, backend.sent)
	assert.Equal(t, backend.sent.Hash(), hash)

	tx := backend.sent
	assert.Equal(t, liquidatorAddr, *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(350000), tx.Gas())
	assert.Equal(t, 0, tx.GasPrice().Cmp(big.NewInt(6_000_000_000)))
	assert.Equal(t, from, backend.estimated.From)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, from, sender)

	parsed, err := abi.JSON(strings.NewReader(liquidatorABI))
	require.NoError(t, err)
	method, err := parsed.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, methodLiquidate, method.Name)
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, holder, args[0])
}

func TestLiquidateSendError(t *testing.T) {
	boom := errors.New("replacement transaction underpriced")
	backend := &fakeTransactor{code: []byte{0x60}, sendErr: boom}
	l, _, _ := newTestLiquidator(t, backend)

	_, err := l.Liquidate(context.Background(), holder)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, methodLiquidate, rpcErr.Method)
}

func TestLiquidateWithoutContractCode(t *testing.T) {
	backend := &fakeTransactor{}
	l, _, _ := newTestLiquidator(t, backend)

	_, err := l.Liquidate(context.Background(), holder)
	require.Error(t, err)
	assert.Nil(t, backend.sent)
}

func TestNewLiquidatorRequiresSignerAndBackend(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewLiquidator(nil, LiquidatorConfig{Contract: liquidatorAddr}, logger)
	assert.ErrorIs(t, err, ErrMissingTransactor)

	_, err = NewLiquidator(&fakeTransactor{}, LiquidatorConfig{Contract: liquidatorAddr}, logger)
	assert.ErrorIs(t, err, ErrMissingSigner)
}
