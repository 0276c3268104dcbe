package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/network"
)

// Eip1559Tx carries the fields a caller supplies for
// wallet_transfer/wallet_deploy_contract/wallet_call_contract (spec §6);
// To is nil for contract deployment, Input carries call/deploy data.
type Eip1559Tx struct {
	ChainID              uint64
	Nonce                uint64
	GasLimit             uint64
	To                   *common.Address
	Input                []byte
	Value                U256
	MaxFeePerGas         U256
	MaxPriorityFeePerGas U256
}

// signEip1559 builds and signs the EIP-1559 (type-2 envelope, London
// signer) transaction for tx under secretKeyHex, with no network
// dependency — kept separate from SignAndSend so the signing step itself
// (key -> signed tx -> recovered signer) is testable without an RPC.
func signEip1559(secretKeyHex string, tx Eip1559Tx) (*types.Transaction, error) {
	key, err := ethcrypto.HexToECDSA(secretKeyHex)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "decode wallet secret key", err)
	}

	signer := types.NewLondonSigner(new(big.Int).SetUint64(tx.ChainID))
	dynTx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(tx.ChainID),
		Nonce:     tx.Nonce,
		GasTipCap: tx.MaxPriorityFeePerGas.ToBig(),
		GasFeeCap: tx.MaxFeePerGas.ToBig(),
		Gas:       tx.GasLimit,
		To:        tx.To,
		Value:     tx.Value.ToBig(),
		Data:      tx.Input,
	})
	signedTx, err := types.SignTx(dynTx, signer, key)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "sign transaction", err)
	}
	return signedTx, nil
}

// SignAndSend signs tx with the wallet's secret key and submits it via
// eth_sendRawTransaction, or via debug_traceCall when trace is set. It
// never mutates local balances — those are driven exclusively by the
// engine's explicit lock/unlock/mint/burn calls.
func (w *Wallet) SignAndSend(ctx context.Context, registry *network.Registry, networkName string, tx Eip1559Tx, trace bool) (string, error) {
	net, err := registry.Load(networkName)
	if err != nil {
		return "", err
	}

	signedTx, err := signEip1559(w.SecretKey, tx)
	if err != nil {
		return "", err
	}

	client, err := ethclient.DialContext(ctx, net.RPCURL)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "dial rpc", err)
	}
	defer client.Close()

	if trace {
		raw, err := signedTx.MarshalBinary()
		if err != nil {
			return "", apperr.Wrap(apperr.Internal, "encode tx for trace", err)
		}
		var result any
		if err := client.Client().CallContext(ctx, &result, "debug_traceCall", fmt.Sprintf("0x%x", raw), "latest"); err != nil {
			return "", apperr.Wrap(apperr.Upstream, "debug_traceCall", err)
		}
		return fmt.Sprintf("%v", result), nil
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", apperr.Wrap(apperr.Upstream, "send transaction", err)
	}
	log.WithField("wallet", w.EthAddress).WithField("network", networkName).WithField("tx_hash", signedTx.Hash().Hex()).Info("transaction submitted")
	return signedTx.Hash().Hex(), nil
}

// Balance combines local bookkeeping with a live on-chain read.
type Balance struct {
	Free    U256   `json:"free"`
	Locked  U256   `json:"locked"`
	OnChain string `json:"on_chain"`
}

// GetBalance returns local free/locked alongside a live eth_getBalance
// query against the wallet's address on the given network.
func (w *Wallet) GetBalance(ctx context.Context, registry *network.Registry, networkName string) (Balance, error) {
	b, err := w.balance(networkName)
	if err != nil {
		return Balance{}, err
	}
	net, err := registry.Load(networkName)
	if err != nil {
		return Balance{}, err
	}
	client, err := ethclient.DialContext(ctx, net.RPCURL)
	if err != nil {
		return Balance{}, apperr.Wrap(apperr.Upstream, "dial rpc", err)
	}
	defer client.Close()

	onChain, err := client.BalanceAt(ctx, common.HexToAddress(w.EthAddress), nil)
	if err != nil {
		return Balance{}, apperr.Wrap(apperr.Upstream, "eth_getBalance", err)
	}
	return Balance{Free: b.Free, Locked: b.Locked, OnChain: fmt.Sprintf("0x%x", onChain)}, nil
}

// PassthroughCall issues a raw JSON-RPC call against a configured network,
// used by the eth_*/web3_*/net_version command passthrough surface.
func PassthroughCall(ctx context.Context, registry *network.Registry, networkName, method string, params ...any) (any, error) {
	net, err := registry.Load(networkName)
	if err != nil {
		return nil, err
	}
	client, err := rpc.DialContext(ctx, net.RPCURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "dial rpc", err)
	}
	defer client.Close()

	var result any
	if err := client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, method, err)
	}
	return result, nil
}

// ToBig exposes the big.Int view go-ethereum's tx types expect.
func (u U256) ToBig() *big.Int {
	if u.Int == nil {
		return new(big.Int)
	}
	return u.Int.ToBig()
}
