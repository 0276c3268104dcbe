package user

import (
	"testing"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/wallet"
)

type fixedRNG struct{ b byte }

func (f fixedRNG) RandomBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := range out {
		out[i] = f.b
	}
	return out, nil
}

type fixedClock string

func (c fixedClock) TrustedTime() string { return string(c) }

func newStores(t *testing.T) (*Store, *wallet.Store) {
	t.Helper()
	store := ledger.NewMemStore()
	wallets := wallet.NewStore(store)
	return NewStore(store, wallets), wallets
}

func mustWallet(t *testing.T, wallets *wallet.Store, seed byte) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New("", fixedRNG{b: seed})
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	if err := wallets.Create(w, fixedClock("t0")); err != nil {
		t.Fatalf("wallets.Create: %v", err)
	}
	return w
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	users, _ := newStores(t)
	u1, err := users.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	u2, err := users.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if u1.ID != u2.ID {
		t.Fatalf("expected same user, got %q and %q", u1.ID, u2.ID)
	}
	ids, err := users.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one indexed user, got %v", ids)
	}
}

func TestAddWalletLinksBothSides(t *testing.T) {
	users, wallets := newStores(t)
	w := mustWallet(t, wallets, 0x01)
	u, err := users.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := users.AddWallet(u, w.EthAddress); err != nil {
		t.Fatalf("AddWallet: %v", err)
	}
	if len(u.Wallets) != 1 || u.Wallets[0] != w.EthAddress {
		t.Fatalf("expected user to list wallet, got %v", u.Wallets)
	}
	reloaded, err := wallets.Load(w.EthAddress)
	if err != nil {
		t.Fatalf("Load wallet: %v", err)
	}
	if len(reloaded.Users) != 1 || reloaded.Users[0] != "alice" {
		t.Fatalf("expected wallet to list user, got %v", reloaded.Users)
	}
}

func TestAddWalletRejectsDuplicateAndMissing(t *testing.T) {
	users, wallets := newStores(t)
	w := mustWallet(t, wallets, 0x02)
	u, _ := users.GetOrCreate("alice")
	if err := users.AddWallet(u, w.EthAddress); err != nil {
		t.Fatalf("AddWallet: %v", err)
	}
	if err := users.AddWallet(u, w.EthAddress); !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if err := users.AddWallet(u, "0xdeadbeef"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound for missing wallet, got %v", err)
	}
}

func TestAddTransactionRejectsDuplicatePair(t *testing.T) {
	users, _ := newStores(t)
	u, _ := users.GetOrCreate("alice")
	if err := users.AddTransaction(u, "tx1", RoleOrchestrator); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := users.AddTransaction(u, "tx1", RoleParticipant); err != nil {
		t.Fatalf("AddTransaction different role: %v", err)
	}
	if err := users.AddTransaction(u, "tx1", RoleOrchestrator); !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists on repeated pair, got %v", err)
	}
}
