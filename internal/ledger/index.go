package ledger

import (
	"encoding/json"
	"fmt"

	"evm-pvp-settlement/internal/apperr"
)

// LoadJSON fetches table/key and unmarshals it into out. Returns NotFound
// (as *apperr.Error) rather than a bare bool so callers can propagate it
// directly.
func LoadJSON(s Store, table, key string, out any) error {
	raw, ok, err := s.Get(table, key)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, fmt.Sprintf("ledger get %s/%s", table, key), err)
	}
	if !ok {
		return apperr.Newf(apperr.NotFound, "%s/%s not found", table, key)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.Internal, fmt.Sprintf("decode %s/%s", table, key), err)
	}
	return nil
}

// SaveJSON marshals v canonically and writes it to table/key.
func SaveJSON(s Store, table, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperr.Wrap(apperr.Internal, fmt.Sprintf("encode %s/%s", table, key), err)
	}
	if err := s.Set(table, key, raw); err != nil {
		return apperr.Wrap(apperr.Upstream, fmt.Sprintf("ledger set %s/%s", table, key), err)
	}
	return nil
}

// Exists reports whether table/key has an entry, without decoding it.
func Exists(s Store, table, key string) (bool, error) {
	_, ok, err := s.Get(table, key)
	if err != nil {
		return false, apperr.Wrap(apperr.Upstream, fmt.Sprintf("ledger get %s/%s", table, key), err)
	}
	return ok, nil
}

// LoadIDIndex loads the ALL index for a table that stores a plain list of
// IDs (network/user/transaction tables). A missing index is treated as
// empty rather than NotFound — the table may simply not have been written
// to yet.
func LoadIDIndex(s Store, table string) ([]string, error) {
	var ids []string
	raw, ok, err := s.Get(table, ALLKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, fmt.Sprintf("ledger get %s/ALL", table), err)
	}
	if !ok {
		return []string{}, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, apperr.Wrap(apperr.Internal, fmt.Sprintf("decode %s/ALL", table), err)
	}
	return ids, nil
}

// AppendIDIndex appends id to table's ALL index, rejecting duplicates with
// AlreadyExists (the index-mutation reject-on-duplicate behavior carried
// forward from the original Wallets/Users/Transactions index semantics).
func AppendIDIndex(s Store, table, id string) error {
	ids, err := LoadIDIndex(s, table)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return apperr.Newf(apperr.AlreadyExists, "%s/%s already indexed", table, id)
		}
	}
	ids = append(ids, id)
	return SaveJSON(s, table, ALLKey, ids)
}
