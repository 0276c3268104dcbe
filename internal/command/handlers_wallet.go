package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/wallet"
)

func handleWalletAdd(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req walletAddRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := wallet.New(req.SecretKey, rt.RNG)
	if err != nil {
		return "", err
	}
	if err := d.Wallets.Create(w, rt.Clock); err != nil {
		return "", err
	}
	return fmt.Sprintf("wallet %s added", w.EthAddress), nil
}

func handleWalletAddNetwork(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req walletAddNetworkRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := d.Wallets.Load(req.EthAddress)
	if err != nil {
		return "", err
	}
	if err := w.AddNetwork(req.NetworkName); err != nil {
		return "", err
	}
	if err := d.Wallets.Save(w); err != nil {
		return "", err
	}
	return fmt.Sprintf("wallet %s bound to %s", req.EthAddress, req.NetworkName), nil
}

func handleWalletLock(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req walletLockRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := d.Wallets.Load(req.EthAddress)
	if err != nil {
		return "", err
	}
	proof, err := w.Lock(req.NetworkName, req.Value, req.Balance, rt.Clock)
	if err != nil {
		return "", err
	}
	if err := d.Wallets.Save(w); err != nil {
		return "", err
	}
	return fmt.Sprintf("locked %s on %s for %s; proof: %s", req.Value.Hex(), req.NetworkName, req.EthAddress, proof), nil
}

func handleWalletUnlock(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req walletUnlockRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := d.Wallets.Load(req.EthAddress)
	if err != nil {
		return "", err
	}
	proof, err := w.Unlock(req.NetworkName, req.Value, rt.Clock)
	if err != nil {
		return "", err
	}
	if err := d.Wallets.Save(w); err != nil {
		return "", err
	}
	return fmt.Sprintf("unlocked %s on %s for %s; proof: %s", req.Value.Hex(), req.NetworkName, req.EthAddress, proof), nil
}

func handleWalletAddress(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	w, err := loadWallet(d, raw)
	if err != nil {
		return "", err
	}
	return w.EthAddress, nil
}

func handleWalletSecretKey(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	w, err := loadWallet(d, raw)
	if err != nil {
		return "", err
	}
	return w.SecretKey, nil
}

func handleWalletPublicKey(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	w, err := loadWallet(d, raw)
	if err != nil {
		return "", err
	}
	return w.PublicKey, nil
}

func handleWalletNetworks(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	w, err := loadWallet(d, raw)
	if err != nil {
		return "", err
	}
	return marshalJSON(w.Networks)
}

func handleWalletBalance(d *Dispatcher, ctx context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req walletBalanceRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := d.Wallets.Load(req.EthAddress)
	if err != nil {
		return "", err
	}
	balance, err := w.GetBalance(ctx, d.Networks, req.NetworkName)
	if err != nil {
		return "", err
	}
	return marshalJSON(balance)
}

func handleWalletTransfer(d *Dispatcher, ctx context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	return signAndSend(d, ctx, raw)
}

func handleWalletDeployContract(d *Dispatcher, ctx context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	return signAndSend(d, ctx, raw)
}

func handleWalletCallContract(d *Dispatcher, ctx context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	return signAndSend(d, ctx, raw)
}

func signAndSend(d *Dispatcher, ctx context.Context, raw json.RawMessage) (string, error) {
	var req walletTxRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	w, err := d.Wallets.Load(req.EthAddress)
	if err != nil {
		return "", err
	}
	var to *common.Address
	if req.To != "" {
		addr, err := parseAddress(req.To)
		if err != nil {
			return "", err
		}
		to = &addr
	}
	input, err := optionalInputHex(req.Input)
	if err != nil {
		return "", err
	}
	tx := wallet.Eip1559Tx{
		ChainID:              req.ChainID,
		Nonce:                req.Nonce,
		GasLimit:             req.GasLimit,
		To:                   to,
		Input:                input,
		Value:                req.Value,
		MaxFeePerGas:         req.MaxFeePerGas,
		MaxPriorityFeePerGas: req.MaxPriorityFeePerGas,
	}
	hash, err := w.SignAndSend(ctx, d.Networks, req.NetworkName, tx, req.Trace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("submitted %s", hash), nil
}

func handleWalletsAllForUser(d *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	u, err := d.Users.Load(sender)
	if err != nil {
		return "", err
	}
	return marshalJSON(u.Wallets)
}

func handleWalletsAll(d *Dispatcher, _ context.Context, _ host.Runtime, _ json.RawMessage) (string, error) {
	entries, err := d.Wallets.List()
	if err != nil {
		return "", err
	}
	return marshalJSON(entries)
}

func loadWallet(d *Dispatcher, raw json.RawMessage) (*wallet.Wallet, error) {
	var req walletAddressRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if req.EthAddress == "" {
		return nil, apperr.New(apperr.BadRequest, "eth_address is required")
	}
	return d.Wallets.Load(req.EthAddress)
}
