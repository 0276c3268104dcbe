package command

import (
	"context"
	"encoding/json"

	"evm-pvp-settlement/internal/host"
)

func handleUserAdd(d *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	u, err := d.Users.GetOrCreate(sender)
	if err != nil {
		return "", err
	}
	return marshalJSON(u)
}

func handleUserGet(d *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	u, err := d.Users.Load(sender)
	if err != nil {
		return "", err
	}
	return marshalJSON(u)
}

func handleUserAddWallet(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req userAddWalletRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	u, err := d.Users.GetOrCreate(sender)
	if err != nil {
		return "", err
	}
	if err := d.Users.AddWallet(u, req.EthAddress); err != nil {
		return "", err
	}
	return "wallet " + req.EthAddress + " linked to " + sender, nil
}

func handleUsersAll(d *Dispatcher, _ context.Context, _ host.Runtime, _ json.RawMessage) (string, error) {
	ids, err := d.Users.List()
	if err != nil {
		return "", err
	}
	return marshalJSON(ids)
}
