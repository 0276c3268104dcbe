package command

import (
	"context"
	"encoding/json"

	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/pvp"
)

func handleTransactionAdd(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req transactionAddRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	tx, err := d.Engine.Create(pvpContext(rt, sender),
		pvp.ParticipantInput{Address: req.SourceAddress, NetworkName: req.SourceNetworkName, Amount: req.SourceAmount},
		pvp.ParticipantInput{Address: req.DestinationAddress, NetworkName: req.DestinationNetworkName, Amount: req.DestinationAmount},
	)
	if err != nil {
		return "", err
	}
	return marshalJSON(tx)
}

func handleTransactionGet(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req transactionGetRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	tx, err := d.Engine.Get(req.TxID)
	if err != nil {
		return "", err
	}
	return marshalJSON(tx)
}

func handleTransactionCommit(d *Dispatcher, _ context.Context, rt host.Runtime, raw json.RawMessage) (string, error) {
	var req transactionCommitRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	hash, err := d.Engine.Commit(pvpContext(rt, sender), req.TxID, pvp.CommitInput{
		SourceAddress:     req.SourceAddress,
		SourceNetworkName: req.SourceNetworkName,
		SourceAmount:      req.SourceAmount,
		EscrowAddress:     req.EscrowAddress,
		TxHash:            req.TxHash,
	})
	if err != nil {
		return "", err
	}
	return "committed, tx_hash " + hash, nil
}

func handleTransactionApply(d *Dispatcher, _ context.Context, _ host.Runtime, raw json.RawMessage) (string, error) {
	var req transactionApplyRequest
	if err := decode(raw, &req); err != nil {
		return "", err
	}
	if err := d.Engine.Apply(req.TxID, req.TxHash); err != nil {
		return "", err
	}
	return "applied " + req.TxHash, nil
}

func handleTransactionsAllForUser(d *Dispatcher, _ context.Context, rt host.Runtime, _ json.RawMessage) (string, error) {
	sender, err := senderOf(rt)
	if err != nil {
		return "", err
	}
	memberships, err := d.Engine.ListForUser(sender)
	if err != nil {
		return "", err
	}
	return marshalJSON(memberships)
}
