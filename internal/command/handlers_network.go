package command

import (
	"context"
	"encoding/json"
	"fmt"

	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/network"
)

func handleNetworkAdd(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req networkAddRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	n := network.Network{
		Name:        req.NetworkName,
		ChainID:     req.ChainID,
		RPCURL:      req.RPCURL,
		GasPrice:    req.GasPrice,
		Credentials: req.Credentials,
	}
	if err := d.Networks.Add(n); err != nil {
		return "", err
	}
	return fmt.Sprintf("network %s added", req.NetworkName), nil
}

func handleNetworkRemove(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req networkRemoveRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	if err := d.Networks.Remove(req.NetworkName); err != nil {
		return "", err
	}
	return fmt.Sprintf("network %s removed", req.NetworkName), nil
}

func handleNetworkSetChainID(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req networkSetChainIDRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	if err := d.Networks.UpdateChainID(req.NetworkName, req.ChainID); err != nil {
		return "", err
	}
	return fmt.Sprintf("network %s chain_id set to %d", req.NetworkName, req.ChainID), nil
}

func handleNetworkSetGasPrice(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req networkSetGasPriceRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	if err := d.Networks.UpdateGasPrice(req.NetworkName, req.GasPrice); err != nil {
		return "", err
	}
	return fmt.Sprintf("network %s gas_price set to %d", req.NetworkName, req.GasPrice), nil
}

func handleNetworksAll(d *Dispatcher, _ context.Context, _ host.Runtime, _ json.RawMessage) (string, error) {
	names, err := d.Networks.List()
	if err != nil {
		return "", err
	}
	return marshalJSON(names)
}
