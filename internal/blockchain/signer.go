// internal/blockchain/signer.go
package blockchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ExternalSigner signs transactions through a Clef-compatible endpoint
// (account_signTransaction). Keys stay with the signer process.
type ExternalSigner struct {
	signer  *external.ExternalSigner
	chainID *big.Int
}

// DialExternalSigner connects to endpoint, an HTTP/WS URL or an IPC path.
func DialExternalSigner(endpoint string, chainID *big.Int) (*ExternalSigner, error) {
	s, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial external signer: %w", err)
	}
	return &ExternalSigner{signer: s, chainID: chainID}, nil
}

// SignerFn adapts the signer to bind.TransactOpts.
func (s *ExternalSigner) SignerFn() bind.SignerFn {
	return func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		return s.signer.SignTx(accounts.Account{Address: from}, tx, s.chainID)
	}
}
