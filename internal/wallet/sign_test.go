package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TestSignEip1559RecoversWalletAddress reproduces spec §8's "Sign EIP-1559
// with fixed inputs -> recovered signer equals wallet address (bit-exact)"
// property: signing is deterministic in its inputs and the London signer
// must recover exactly the address the wallet was created with.
func TestSignEip1559RecoversWalletAddress(t *testing.T) {
	w := mustWallet(t)
	to := common.HexToAddress("0x0E8fCE2dFF1841041D44eAF1C68dbe514f46ee40")
	value, _ := ParseU256("0x100")
	tip, _ := ParseU256("0x1")
	fee, _ := ParseU256("0x2")

	tx := Eip1559Tx{
		ChainID:              1,
		Nonce:                0,
		GasLimit:             21000,
		To:                   &to,
		Input:                nil,
		Value:                value,
		MaxFeePerGas:         fee,
		MaxPriorityFeePerGas: tip,
	}

	signedTx, err := signEip1559(w.SecretKey, tx)
	if err != nil {
		t.Fatalf("signEip1559: %v", err)
	}

	signer := types.NewLondonSigner(signedTx.ChainId())
	recovered, err := types.Sender(signer, signedTx)
	if err != nil {
		t.Fatalf("types.Sender: %v", err)
	}
	if recovered.Hex() != w.EthAddress {
		t.Fatalf("recovered signer %s does not match wallet address %s", recovered.Hex(), w.EthAddress)
	}
}

// TestSignEip1559IsDeterministic confirms signing the same fixed inputs
// twice produces bit-exact identical signed transactions.
func TestSignEip1559IsDeterministic(t *testing.T) {
	w := mustWallet(t)
	to := common.HexToAddress("0x0E8fCE2dFF1841041D44eAF1C68dbe514f46ee40")
	value, _ := ParseU256("0x100")
	tip, _ := ParseU256("0x1")
	fee, _ := ParseU256("0x2")

	tx := Eip1559Tx{
		ChainID:              1,
		Nonce:                0,
		GasLimit:             21000,
		To:                   &to,
		Value:                value,
		MaxFeePerGas:         fee,
		MaxPriorityFeePerGas: tip,
	}

	first, err := signEip1559(w.SecretKey, tx)
	if err != nil {
		t.Fatalf("signEip1559: %v", err)
	}
	second, err := signEip1559(w.SecretKey, tx)
	if err != nil {
		t.Fatalf("signEip1559: %v", err)
	}
	firstRaw, err := first.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	secondRaw, err := second.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if string(firstRaw) != string(secondRaw) {
		t.Fatal("expected bit-exact identical signed transactions for identical inputs")
	}
}
