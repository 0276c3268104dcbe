package pvp

import (
	"evm-pvp-settlement/internal/ledger"
)

// txStore persists Transaction entities and maintains the plain-ID index.
type txStore struct {
	ledger ledger.Store
}

func (s *txStore) create(tx *Transaction) error {
	if err := ledger.SaveJSON(s.ledger, ledger.TransactionTable, tx.ID, tx); err != nil {
		return err
	}
	return ledger.AppendIDIndex(s.ledger, ledger.TransactionTable, tx.ID)
}

func (s *txStore) save(tx *Transaction) error {
	return ledger.SaveJSON(s.ledger, ledger.TransactionTable, tx.ID, tx)
}

func (s *txStore) load(id string) (*Transaction, error) {
	var tx Transaction
	if err := ledger.LoadJSON(s.ledger, ledger.TransactionTable, id, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *txStore) exists(id string) (bool, error) {
	return ledger.Exists(s.ledger, ledger.TransactionTable, id)
}
