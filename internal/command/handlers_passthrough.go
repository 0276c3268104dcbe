package command

import (
	"context"
	"encoding/json"

	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/wallet"
)

// dispatchPassthrough services the eth_*/web3_*/net_version surface spec §1
// lists as an out-of-scope external collaborator: decode {network_name,
// params}, forward verbatim to the configured network's RPC endpoint, and
// hand back whatever it returns. No business logic lives here; it takes
// the command name directly since handlerFunc's signature has no way to
// see which eth_*/web3_* method was actually invoked.
func (d *Dispatcher) dispatchPassthrough(ctx context.Context, method string, raw json.RawMessage) (string, error) {
	var req passthroughRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	result, err := wallet.PassthroughCall(ctx, d.Networks, req.NetworkName, method, req.Params...)
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

func handleGetSender(_ *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	return senderOf(rt)
}

func handleGetTrustedTime(_ *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	if rt.Clock == nil {
		return "", nil
	}
	return rt.Clock.TrustedTime(), nil
}
