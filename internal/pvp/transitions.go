package pvp

import (
	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/wallet"
)

// CommitInput is the JSON payload shape for transaction_commit (spec §6):
// field names are always the "source_*" ones regardless of which leg of the
// PvP they are validated against — the engine decides which stored
// Participant to compare against based on the current state, exactly as the
// upstream command schema does.
type CommitInput struct {
	SourceAddress     string
	SourceNetworkName string
	SourceAmount      wallet.U256
	EscrowAddress     string
	TxHash            string // required for AwaitingSourceReceive/AwaitingDestinationSend; ignored otherwise
}

// commitFunc validates and advances one commit transition. It returns the
// tx_hash recorded in the new audit entry (the notification payload).
type commitFunc func(e *Engine, ctx Context, tx *Transaction, pvp *PaymentVsPayment, caller *callerInfo, in CommitInput) (string, error)

// applyFunc finalizes one apply transition: it performs the escrow/participant
// balance mutation and advances state_machine to the next Awaiting* state
// (or to Complete after the source-send leg).
type applyFunc func(e *Engine, tx *Transaction, pvp *PaymentVsPayment) error

type callerInfo struct {
	userID  string
	wallets []string
}

func (c *callerInfo) owns(address string) bool {
	for _, w := range c.wallets {
		if w == address {
			return true
		}
	}
	return false
}

var commitTable = map[State]commitFunc{
	StateAwaitingSourceReceive:    commitSourceReceive,
	StateAwaitingDestinationReceive: commitDestinationReceive,
	StateAwaitingDestinationSend:  commitDestinationSend,
	StateAwaitingSourceSend:       commitSourceSend,
}

var applyTable = map[State]applyFunc{
	StateAwaitingSourceReceiveFinalized:      applySourceReceive,
	StateAwaitingDestinationReceiveFinalized: applyDestinationReceive,
	StateAwaitingDestinationSendFinalized:    applyDestinationSend,
	StateAwaitingSourceSendFinalized:         applySourceSend,
}

// Commit implements transaction_commit: it looks up the handler for the
// transaction's current state and delegates to it. States with no commit
// handler (the *Finalized waiting states, Complete, Cancelled) reject with
// WrongState.
func (e *Engine) Commit(ctx Context, txID string, in CommitInput) (string, error) {
	tx, pvp, err := e.loadActive(txID)
	if err != nil {
		return "", err
	}
	fn, ok := commitTable[pvp.StateMachine]
	if !ok {
		if pvp.StateMachine == StateComplete {
			return "", apperr.New(apperr.WrongState, "transaction is already complete")
		}
		return "", apperr.Newf(apperr.WrongState, "no commit transition from state %s", pvp.StateMachine)
	}

	caller, err := e.callerInfoFor(ctx.Sender)
	if err != nil {
		return "", err
	}

	hash, err := fn(e, ctx, tx, pvp, caller, in)
	if err != nil {
		return "", err
	}
	tx.PaymentVsPayment = pvp
	if err := e.txs.save(tx); err != nil {
		return "", err
	}
	return hash, nil
}

// Apply implements transaction_apply: it locates the audit entry by hash,
// checks it is in the state the current PvP state awaits, performs the
// balance mutation, marks the entry Complete, and advances state_machine.
// Complete is absorbing: re-applying against an already-Complete
// transaction succeeds as a no-op (spec §8 round-trip property).
func (e *Engine) Apply(txID, txHash string) error {
	tx, pvp, err := e.loadActive(txID)
	if err != nil {
		return err
	}
	if pvp.StateMachine == StateComplete {
		return nil
	}
	fn, ok := applyTable[pvp.StateMachine]
	if !ok {
		return apperr.Newf(apperr.WrongState, "no apply transition from state %s", pvp.StateMachine)
	}
	idx := pvp.findByTxHash(txHash)
	if idx < 0 {
		return apperr.Newf(apperr.NotFound, "tx_hash %q not found in audit trail", txHash)
	}
	expected := awaitedAuditState[pvp.StateMachine]
	if pvp.NetworkTransactions[idx].State != expected {
		return apperr.Newf(apperr.WrongState, "tx_hash %q is not in the expected state %s", txHash, expected)
	}

	if err := fn(e, tx, pvp); err != nil {
		return err
	}
	pvp.NetworkTransactions[idx].State = StateComplete
	tx.PaymentVsPayment = pvp
	return e.txs.save(tx)
}

// awaitedAuditState maps each *Finalized waiting state to the audit-entry
// state apply expects to find still pending.
var awaitedAuditState = map[State]State{
	StateAwaitingSourceReceiveFinalized:      StateAwaitingSourceReceive,
	StateAwaitingDestinationReceiveFinalized: StateAwaitingDestinationReceive,
	StateAwaitingDestinationSendFinalized:    StateAwaitingDestinationSend,
	StateAwaitingSourceSendFinalized:         StateAwaitingSourceSend,
}

func (e *Engine) loadActive(txID string) (*Transaction, *PaymentVsPayment, error) {
	tx, err := e.txs.load(txID)
	if err != nil {
		return nil, nil, err
	}
	if tx.PaymentVsPayment == nil {
		return nil, nil, apperr.New(apperr.Internal, "transaction has no payment_vs_payment")
	}
	if tx.PaymentVsPayment.StateMachine == StateCancelled {
		return nil, nil, apperr.New(apperr.WrongState, "transaction is cancelled")
	}
	return tx, tx.PaymentVsPayment, nil
}

func (e *Engine) callerInfoFor(senderID string) (*callerInfo, error) {
	u, err := e.users.Load(senderID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Newf(apperr.Unauthorized, "user %q is not known to the ledger", senderID)
		}
		return nil, err
	}
	return &callerInfo{userID: u.ID, wallets: u.Wallets}, nil
}

func matchLeg(p Participant, address, networkName string, amount wallet.U256) error {
	if address != p.Address {
		return apperr.Newf(apperr.Mismatch, "address %q does not match expected %q", address, p.Address)
	}
	if networkName != p.NetworkName {
		return apperr.Newf(apperr.Mismatch, "network_name %q does not match expected %q", networkName, p.NetworkName)
	}
	if wallet.Cmp(amount, p.Amount) != 0 {
		return apperr.Newf(apperr.Mismatch, "amount %q does not match expected %q", amount.Hex(), p.Amount.Hex())
	}
	return nil
}

func commitSourceReceive(e *Engine, ctx Context, tx *Transaction, pvp *PaymentVsPayment, caller *callerInfo, in CommitInput) (string, error) {
	if !caller.owns(pvp.Source.Address) {
		return "", apperr.Newf(apperr.Unauthorized, "caller does not own source wallet %s", pvp.Source.Address)
	}
	if err := matchLeg(pvp.Source, in.SourceAddress, in.SourceNetworkName, in.SourceAmount); err != nil {
		return "", err
	}
	if in.EscrowAddress != tx.EscrowAddress {
		return "", apperr.Newf(apperr.Mismatch, "escrow_address %q does not match transaction escrow %q", in.EscrowAddress, tx.EscrowAddress)
	}
	if in.TxHash == "" {
		return "", apperr.New(apperr.BadRequest, "tx_hash is required")
	}
	pvp.NetworkTransactions = append(pvp.NetworkTransactions, NetworkTransaction{
		State:       StateAwaitingSourceReceive,
		NetworkName: pvp.Source.NetworkName,
		TxHash:      in.TxHash,
	})
	pvp.StateMachine = StateAwaitingSourceReceiveFinalized
	return in.TxHash, nil
}

func commitDestinationReceive(e *Engine, ctx Context, tx *Transaction, pvp *PaymentVsPayment, caller *callerInfo, in CommitInput) (string, error) {
	if !caller.owns(pvp.Destination.Address) {
		return "", apperr.Newf(apperr.Unauthorized, "caller does not own destination wallet %s", pvp.Destination.Address)
	}
	if err := matchLeg(pvp.Destination, in.SourceAddress, in.SourceNetworkName, in.SourceAmount); err != nil {
		return "", err
	}
	if in.EscrowAddress != tx.EscrowAddress {
		return "", apperr.Newf(apperr.Mismatch, "escrow_address %q does not match transaction escrow %q", in.EscrowAddress, tx.EscrowAddress)
	}
	hash, err := syntheticHash(ctx)
	if err != nil {
		return "", err
	}
	pvp.NetworkTransactions = append(pvp.NetworkTransactions, NetworkTransaction{
		State:       StateAwaitingDestinationReceive,
		NetworkName: pvp.Destination.NetworkName,
		TxHash:      hash,
	})
	pvp.StateMachine = StateAwaitingDestinationReceiveFinalized
	return hash, nil
}

func commitDestinationSend(e *Engine, ctx Context, tx *Transaction, pvp *PaymentVsPayment, caller *callerInfo, in CommitInput) (string, error) {
	if !caller.owns(tx.EscrowAddress) {
		return "", apperr.Newf(apperr.Unauthorized, "caller does not own escrow wallet %s", tx.EscrowAddress)
	}
	// "source network semantics": address validated against destination,
	// network/amount validated against source. The balance effect applied
	// later (applyDestinationSend) moves the destination leg's amount on the
	// destination network from the escrow to the source participant.
	if in.SourceAddress != pvp.Destination.Address {
		return "", apperr.Newf(apperr.Mismatch, "source_address %q does not match transaction destination address %q", in.SourceAddress, pvp.Destination.Address)
	}
	if in.SourceNetworkName != pvp.Source.NetworkName {
		return "", apperr.Newf(apperr.Mismatch, "source_network_name %q does not match transaction source network %q", in.SourceNetworkName, pvp.Source.NetworkName)
	}
	if wallet.Cmp(in.SourceAmount, pvp.Source.Amount) != 0 {
		return "", apperr.Newf(apperr.Mismatch, "source_amount %q does not match transaction source amount %q", in.SourceAmount.Hex(), pvp.Source.Amount.Hex())
	}
	if in.EscrowAddress != tx.EscrowAddress {
		return "", apperr.Newf(apperr.Mismatch, "escrow_address %q does not match transaction escrow %q", in.EscrowAddress, tx.EscrowAddress)
	}
	if in.TxHash == "" {
		return "", apperr.New(apperr.BadRequest, "tx_hash is required")
	}
	pvp.NetworkTransactions = append(pvp.NetworkTransactions, NetworkTransaction{
		State:       StateAwaitingDestinationSend,
		NetworkName: pvp.Source.NetworkName,
		TxHash:      in.TxHash,
	})
	pvp.StateMachine = StateAwaitingDestinationSendFinalized
	return in.TxHash, nil
}

func commitSourceSend(e *Engine, ctx Context, tx *Transaction, pvp *PaymentVsPayment, caller *callerInfo, in CommitInput) (string, error) {
	if !caller.owns(tx.EscrowAddress) {
		return "", apperr.Newf(apperr.Unauthorized, "caller does not own escrow wallet %s", tx.EscrowAddress)
	}
	if in.SourceAddress != pvp.Source.Address {
		return "", apperr.Newf(apperr.Mismatch, "source_address %q does not match transaction source address %q", in.SourceAddress, pvp.Source.Address)
	}
	if in.SourceNetworkName != pvp.Destination.NetworkName {
		return "", apperr.Newf(apperr.Mismatch, "source_network_name %q does not match transaction destination network %q", in.SourceNetworkName, pvp.Destination.NetworkName)
	}
	if wallet.Cmp(in.SourceAmount, pvp.Destination.Amount) != 0 {
		return "", apperr.Newf(apperr.Mismatch, "source_amount %q does not match transaction destination amount %q", in.SourceAmount.Hex(), pvp.Destination.Amount.Hex())
	}
	if in.EscrowAddress != tx.EscrowAddress {
		return "", apperr.Newf(apperr.Mismatch, "escrow_address %q does not match transaction escrow %q", in.EscrowAddress, tx.EscrowAddress)
	}
	hash, err := syntheticHash(ctx)
	if err != nil {
		return "", err
	}
	pvp.NetworkTransactions = append(pvp.NetworkTransactions, NetworkTransaction{
		State:       StateAwaitingSourceSend,
		NetworkName: pvp.Destination.NetworkName,
		TxHash:      hash,
	})
	pvp.StateMachine = StateAwaitingSourceSendFinalized
	return hash, nil
}

// syntheticHash draws a 32-byte RNG identifier for legs that have no
// externally observable chain hash, namespaced with "0x" so it reads
// distinctly from a real transaction hash in logs (spec §9).
func syntheticHash(ctx Context) (string, error) {
	h, err := host.RandomHex(ctx.RNG, 32)
	if err != nil {
		return "", apperr.Wrap(apperr.Upstream, "generate synthetic tx_hash", err)
	}
	return "0x" + h, nil
}

// applySourceReceive: escrow.mint(src.net, src.amt); source.burn(src.net, src.amt) -> AwaitingDestinationReceive.
func applySourceReceive(e *Engine, tx *Transaction, pvp *PaymentVsPayment) error {
	if err := e.mintWallet(tx.EscrowAddress, pvp.Source.NetworkName, pvp.Source.Amount); err != nil {
		return err
	}
	if err := e.burnWallet(pvp.Source.Address, pvp.Source.NetworkName, pvp.Source.Amount); err != nil {
		return err
	}
	pvp.StateMachine = StateAwaitingDestinationReceive
	return nil
}

// applyDestinationReceive: escrow.mint(dst.net, dst.amt); destination.burn(dst.net, dst.amt) -> AwaitingDestinationSend.
func applyDestinationReceive(e *Engine, tx *Transaction, pvp *PaymentVsPayment) error {
	if err := e.mintWallet(tx.EscrowAddress, pvp.Destination.NetworkName, pvp.Destination.Amount); err != nil {
		return err
	}
	if err := e.burnWallet(pvp.Destination.Address, pvp.Destination.NetworkName, pvp.Destination.Amount); err != nil {
		return err
	}
	pvp.StateMachine = StateAwaitingDestinationSend
	return nil
}

// applyDestinationSend: escrow.burn(dst.net, dst.amt); source.mint(dst.net, dst.amt) -> AwaitingSourceSend.
func applyDestinationSend(e *Engine, tx *Transaction, pvp *PaymentVsPayment) error {
	if err := e.burnWallet(tx.EscrowAddress, pvp.Destination.NetworkName, pvp.Destination.Amount); err != nil {
		return err
	}
	if err := e.mintWallet(pvp.Source.Address, pvp.Destination.NetworkName, pvp.Destination.Amount); err != nil {
		return err
	}
	pvp.StateMachine = StateAwaitingSourceSend
	return nil
}

// applySourceSend: escrow.burn(src.net, src.amt); destination.mint(src.net, src.amt) -> Complete.
func applySourceSend(e *Engine, tx *Transaction, pvp *PaymentVsPayment) error {
	if err := e.burnWallet(tx.EscrowAddress, pvp.Source.NetworkName, pvp.Source.Amount); err != nil {
		return err
	}
	if err := e.mintWallet(pvp.Destination.Address, pvp.Source.NetworkName, pvp.Source.Amount); err != nil {
		return err
	}
	pvp.StateMachine = StateComplete
	return nil
}

func (e *Engine) mintWallet(address, networkName string, amount wallet.U256) error {
	w, err := e.wallets.Load(address)
	if err != nil {
		return err
	}
	if err := w.Mint(networkName, amount); err != nil {
		return err
	}
	return e.wallets.Save(w)
}

func (e *Engine) burnWallet(address, networkName string, amount wallet.U256) error {
	w, err := e.wallets.Load(address)
	if err != nil {
		return err
	}
	if err := w.Burn(networkName, amount); err != nil {
		return err
	}
	return e.wallets.Save(w)
}
