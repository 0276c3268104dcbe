// Package user implements the User & Wallets Index (spec §4.4): principals
// authenticated by the host, each owning a set of wallets and a set of
// (transaction_id, role) memberships.
package user

import (
	"github.com/sirupsen/logrus"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/logging"
	"evm-pvp-settlement/internal/wallet"
)

var log = logging.New()

// SetLogger redirects this package's structured logging.
func SetLogger(l *logrus.Logger) { log = l }

// Role is the membership role a user holds on a transaction.
type Role string

const (
	RoleOrchestrator Role = "Orchestrator"
	RoleParticipant  Role = "Participant"
)

// TxMembership is one (tx_id, role) pair.
type TxMembership struct {
	TxID string `json:"tx_id"`
	Role Role   `json:"role"`
}

// User is the persisted entity, identified by the host-authenticated sender
// id.
type User struct {
	ID           string         `json:"id"`
	Wallets      []string       `json:"wallets"`
	Transactions []TxMembership `json:"transactions"`
}

// Store persists Users and maintains the wallet/transaction back-references.
type Store struct {
	ledger  ledger.Store
	wallets *wallet.Store
}

func NewStore(s ledger.Store, wallets *wallet.Store) *Store {
	return &Store{ledger: s, wallets: wallets}
}

// GetOrCreate loads the user for id, creating (and indexing) an empty one on
// first sight — the host authenticates the sender; there is no separate
// "register" step beyond the first command they issue.
func (s *Store) GetOrCreate(id string) (*User, error) {
	var u User
	err := ledger.LoadJSON(s.ledger, ledger.UserTable, id, &u)
	if err == nil {
		return &u, nil
	}
	if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	u = User{ID: id, Wallets: []string{}, Transactions: []TxMembership{}}
	if err := s.Save(&u); err != nil {
		return nil, err
	}
	if err := ledger.AppendIDIndex(s.ledger, ledger.UserTable, id); err != nil {
		return nil, err
	}
	log.WithField("user", id).Info("user created")
	return &u, nil
}

// Load fetches a user by id, failing NotFound if they have never been seen.
func (s *Store) Load(id string) (*User, error) {
	var u User
	if err := ledger.LoadJSON(s.ledger, ledger.UserTable, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Save persists mutations to an already-created user.
func (s *Store) Save(u *User) error {
	return ledger.SaveJSON(s.ledger, ledger.UserTable, u.ID, u)
}

// List returns every known user id.
func (s *Store) List() ([]string, error) {
	return ledger.LoadIDIndex(s.ledger, ledger.UserTable)
}

// AddWallet links addr to u, failing NotFound if the wallet does not exist
// and AlreadyExists if u already owns it; on success it also records the
// reciprocal link on the wallet side before returning, per spec §3's
// bidirectional-consistency requirement.
func (s *Store) AddWallet(u *User, addr string) error {
	for _, existing := range u.Wallets {
		if existing == addr {
			return apperr.Newf(apperr.AlreadyExists, "user %s already owns wallet %s", u.ID, addr)
		}
	}
	w, err := s.wallets.Load(addr)
	if err != nil {
		return err
	}
	if err := w.AddUser(u.ID); err != nil {
		return err
	}
	if err := s.wallets.Save(w); err != nil {
		return err
	}
	u.Wallets = append(u.Wallets, addr)
	return s.Save(u)
}

// AddTransaction links (txID, role) to u, failing AlreadyExists on a
// duplicate pair. It does not check that a Transaction with txID exists:
// internal/pvp's Create calls it before the Transaction row is written, so
// that the row is persisted last.
func (s *Store) AddTransaction(u *User, txID string, role Role) error {
	for _, m := range u.Transactions {
		if m.TxID == txID && m.Role == role {
			return apperr.Newf(apperr.AlreadyExists, "user %s already has %s membership on %s", u.ID, role, txID)
		}
	}
	u.Transactions = append(u.Transactions, TxMembership{TxID: txID, Role: role})
	return s.Save(u)
}
