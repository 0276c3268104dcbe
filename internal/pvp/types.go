// Package pvp implements the PvP Transaction Engine (spec §4.5): the state
// machine driving a two-leg cross-chain swap through an internally-created
// escrow wallet.
package pvp

import (
	"github.com/sirupsen/logrus"

	"evm-pvp-settlement/internal/logging"
	"evm-pvp-settlement/internal/wallet"
)

var log = logging.New()

// SetLogger redirects this package's structured logging.
func SetLogger(l *logrus.Logger) { log = l }

// State is the closed PvPstate enumeration (spec §3), linear except for the
// terminal Cancelled side-state.
type State string

const (
	StateInit                               State = "Init"
	StateAwaitingSourceReceive               State = "AwaitingSourceReceive"
	StateAwaitingSourceReceiveFinalized      State = "AwaitingSourceReceiveFinalized"
	StateAwaitingDestinationReceive          State = "AwaitingDestinationReceive"
	StateAwaitingDestinationReceiveFinalized State = "AwaitingDestinationReceiveFinalized"
	StateAwaitingDestinationSend             State = "AwaitingDestinationSend"
	StateAwaitingDestinationSendFinalized    State = "AwaitingDestinationSendFinalized"
	StateAwaitingSourceSend                  State = "AwaitingSourceSend"
	StateAwaitingSourceSendFinalized         State = "AwaitingSourceSendFinalized"
	StateComplete                            State = "Complete"
	StateCancelled                           State = "Cancelled"
)

// Participant describes one leg's network, address, and amount.
type Participant struct {
	NetworkName string     `json:"network_name"`
	Address     string     `json:"address"`
	Amount      wallet.U256 `json:"amount"`
}

// NetworkTransaction is one append-only audit trail entry recording a
// committed leg's hash and the state it was committed under.
type NetworkTransaction struct {
	State       State  `json:"state"`
	NetworkName string `json:"network_name"`
	TxHash      string `json:"tx_hash"`
}

// PaymentVsPayment is the two-leg exchange payload of a Transaction.
type PaymentVsPayment struct {
	Source              Participant          `json:"source"`
	Destination         Participant          `json:"destination"`
	StateMachine        State                `json:"state_machine"`
	NetworkTransactions []NetworkTransaction `json:"network_transactions"`
}

// Transaction is the persisted entity, identified by a 128-hex-char random
// id.
type Transaction struct {
	ID               string            `json:"id"`
	Timestamp        string            `json:"timestamp"`
	EscrowAddress    string            `json:"escrow_address"`
	PaymentVsPayment *PaymentVsPayment `json:"payment_vs_payment,omitempty"`
}

// latestNetworkTransactionInState returns the index of the most recent
// audit entry recorded under the given state, or -1 if none exists.
func (p *PaymentVsPayment) latestNetworkTransactionInState(s State) int {
	for i := len(p.NetworkTransactions) - 1; i >= 0; i-- {
		if p.NetworkTransactions[i].State == s {
			return i
		}
	}
	return -1
}

// findByTxHash returns the index of the audit entry with the given hash, or
// -1 if absent.
func (p *PaymentVsPayment) findByTxHash(txHash string) int {
	for i, nt := range p.NetworkTransactions {
		if nt.TxHash == txHash {
			return i
		}
	}
	return -1
}
