package wallet

import (
	"encoding/json"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/ledger"
)

// IndexEntry is one row of the wallet table's ALL index: per spec §4.4 the
// Wallets index records {address, creation_timestamp} per entry, unlike the
// plain-ID indices used by the other three tables.
type IndexEntry struct {
	Address   string `json:"address"`
	Timestamp string `json:"timestamp"`
}

// Store persists Wallet entities and maintains the address/timestamp index.
type Store struct {
	ledger ledger.Store
}

func NewStore(s ledger.Store) *Store {
	return &Store{ledger: s}
}

// Create persists a brand-new wallet and appends it to the index, failing
// AlreadyExists if the address is already registered (addresses only repeat
// if a secret key is reused, which the caller controls).
func (s *Store) Create(w *Wallet, clock host.Clock) error {
	exists, err := ledger.Exists(s.ledger, ledger.WalletTable, w.EthAddress)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Newf(apperr.AlreadyExists, "wallet %s already exists", w.EthAddress)
	}
	if err := ledger.SaveJSON(s.ledger, ledger.WalletTable, w.EthAddress, w); err != nil {
		return err
	}
	entries, err := s.index()
	if err != nil {
		return err
	}
	entries = append(entries, IndexEntry{Address: w.EthAddress, Timestamp: clock.TrustedTime()})
	return ledger.SaveJSON(s.ledger, ledger.WalletTable, ledger.ALLKey, entries)
}

// Save persists mutations to an already-created wallet.
func (s *Store) Save(w *Wallet) error {
	return ledger.SaveJSON(s.ledger, ledger.WalletTable, w.EthAddress, w)
}

// Load fetches a wallet by address, failing NotFound if absent.
func (s *Store) Load(address string) (*Wallet, error) {
	var w Wallet
	if err := ledger.LoadJSON(s.ledger, ledger.WalletTable, address, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns the full address/timestamp index.
func (s *Store) List() ([]IndexEntry, error) {
	return s.index()
}

func (s *Store) index() ([]IndexEntry, error) {
	var entries []IndexEntry
	raw, ok, err := s.ledger.Get(ledger.WalletTable, ledger.ALLKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "ledger get walletTable/ALL", err)
	}
	if !ok {
		return []IndexEntry{}, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "decode walletTable/ALL", err)
	}
	return entries, nil
}
