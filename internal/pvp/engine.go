package pvp

import (
	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/network"
	"evm-pvp-settlement/internal/user"
	"evm-pvp-settlement/internal/wallet"
)

// Context bundles the per-request host snapshots a handler needs: the
// caller's authenticated identity plus the trusted clock and RNG obtained at
// call time (spec §5 — these are process-wide host state, snapshotted fresh
// per request rather than cached).
type Context struct {
	Sender string
	Clock  host.Clock
	RNG    host.RNG
}

// Engine is the PvP Transaction Engine, bound to the ledger and the three
// lower components it orchestrates.
type Engine struct {
	txs      txStore
	networks *network.Registry
	wallets  *wallet.Store
	users    *user.Store
}

func New(store ledger.Store, networks *network.Registry, wallets *wallet.Store, users *user.Store) *Engine {
	return &Engine{txs: txStore{ledger: store}, networks: networks, wallets: wallets, users: users}
}

// ParticipantInput is the caller-supplied leg description for
// transaction_add.
type ParticipantInput struct {
	Address     string
	NetworkName string
	Amount      wallet.U256
}

// Create implements transaction_add (spec §4.5 "Creation"): it writes the
// escrow Wallet and the user<->wallet back-references before the Transaction
// row itself, so a crash partway through never leaves a Transaction
// pointing at a wallet that does not exist (spec §7).
func (e *Engine) Create(ctx Context, src, dst ParticipantInput) (*Transaction, error) {
	if src.Address == "" || dst.Address == "" {
		return nil, apperr.New(apperr.BadRequest, "source and destination address are required")
	}

	id, err := host.RandomHex(ctx.RNG, 64) // 64 bytes -> 128 hex chars
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "generate transaction id", err)
	}
	timestamp := ctx.Clock.TrustedTime()

	srcWallet, err := e.wallets.Load(src.Address)
	if err != nil {
		return nil, err
	}
	dstWallet, err := e.wallets.Load(dst.Address)
	if err != nil {
		return nil, err
	}

	escrow, err := wallet.New("", ctx.RNG)
	if err != nil {
		return nil, err
	}
	if err := escrow.AddNetwork(src.NetworkName); err != nil {
		return nil, err
	}
	if err := escrow.AddNetwork(dst.NetworkName); err != nil {
		return nil, err
	}
	if err := e.wallets.Create(escrow, ctx.Clock); err != nil {
		return nil, err
	}

	caller, err := e.users.GetOrCreate(ctx.Sender)
	if err != nil {
		return nil, err
	}
	if err := e.users.AddWallet(caller, escrow.EthAddress); err != nil {
		return nil, err
	}
	escrow, err = e.wallets.Load(escrow.EthAddress)
	if err != nil {
		return nil, err
	}
	if err := escrow.AddTransaction(id); err != nil {
		return nil, err
	}
	if err := e.wallets.Save(escrow); err != nil {
		return nil, err
	}
	if err := e.users.AddTransaction(caller, id, user.RoleOrchestrator); err != nil {
		return nil, err
	}

	notified := map[string]bool{}
	for _, candidate := range append(append([]string{}, srcWallet.Users...), dstWallet.Users...) {
		if notified[candidate] {
			continue
		}
		notified[candidate] = true
		u, err := e.users.GetOrCreate(candidate)
		if err != nil {
			return nil, err
		}
		if err := e.users.AddTransaction(u, id, user.RoleParticipant); err != nil && !apperr.Is(err, apperr.AlreadyExists) {
			return nil, err
		}
	}

	tx := &Transaction{
		ID:            id,
		Timestamp:     timestamp,
		EscrowAddress: escrow.EthAddress,
		PaymentVsPayment: &PaymentVsPayment{
			Source:              Participant{NetworkName: src.NetworkName, Address: src.Address, Amount: src.Amount},
			Destination:         Participant{NetworkName: dst.NetworkName, Address: dst.Address, Amount: dst.Amount},
			StateMachine:        StateAwaitingSourceReceive,
			NetworkTransactions: []NetworkTransaction{},
		},
	}
	if err := e.txs.create(tx); err != nil {
		return nil, err
	}
	log.WithField("tx_id", id).WithField("escrow", escrow.EthAddress).Info("transaction created")
	return tx, nil
}

// Get implements transaction_get.
func (e *Engine) Get(id string) (*Transaction, error) {
	return e.txs.load(id)
}

// ListForUser implements transactions_all_for_user.
func (e *Engine) ListForUser(userID string) ([]user.TxMembership, error) {
	u, err := e.users.Load(userID)
	if err != nil {
		return nil, err
	}
	return u.Transactions, nil
}
