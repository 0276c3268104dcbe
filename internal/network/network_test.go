package network

import (
	"testing"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/ledger"
)

func TestAddRejectsDuplicateName(t *testing.T) {
	r := New(ledger.NewMemStore())
	if err := r.Add(Network{Name: "N1", RPCURL: "http://n1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := r.Add(Network{Name: "N1", RPCURL: "http://other"})
	if !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestAddRequiresNameAndRPCURL(t *testing.T) {
	r := New(ledger.NewMemStore())
	if err := r.Add(Network{RPCURL: "http://n1"}); !apperr.Is(err, apperr.BadRequest) {
		t.Fatalf("expected BadRequest for missing name, got %v", err)
	}
	if err := r.Add(Network{Name: "N1"}); !apperr.Is(err, apperr.BadRequest) {
		t.Fatalf("expected BadRequest for missing rpc_url, got %v", err)
	}
}

// TestLoadRoundTrips reproduces spec §8's "Create Network -> Load Network
// -> all fields equal" round-trip property.
func TestLoadRoundTrips(t *testing.T) {
	r := New(ledger.NewMemStore())
	chainID := uint64(1)
	gasPrice := uint64(42)
	creds := "token"
	in := Network{Name: "N1", ChainID: &chainID, RPCURL: "http://n1", GasPrice: &gasPrice, Credentials: &creds}
	if err := r.Add(in); err != nil {
		t.Fatalf("Add: %v", err)
	}
	out, err := r.Load("N1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Name != in.Name || out.RPCURL != in.RPCURL || *out.ChainID != *in.ChainID || *out.GasPrice != *in.GasPrice || *out.Credentials != *in.Credentials {
		t.Fatalf("round-trip mismatch: got %+v want %+v", out, in)
	}
}

func TestRemoveThenListOmitsNetwork(t *testing.T) {
	r := New(ledger.NewMemStore())
	_ = r.Add(Network{Name: "N1", RPCURL: "http://n1"})
	_ = r.Add(Network{Name: "N2", RPCURL: "http://n2"})
	if err := r.Remove("N1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	names, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "N2" {
		t.Fatalf("expected [N2], got %v", names)
	}
	if _, err := r.Load("N1"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound after remove, got %v", err)
	}
}

func TestUpdateChainIDAndGasPrice(t *testing.T) {
	r := New(ledger.NewMemStore())
	_ = r.Add(Network{Name: "N1", RPCURL: "http://n1"})
	if err := r.UpdateChainID("N1", 7); err != nil {
		t.Fatalf("UpdateChainID: %v", err)
	}
	if err := r.UpdateGasPrice("N1", 99); err != nil {
		t.Fatalf("UpdateGasPrice: %v", err)
	}
	out, err := r.Load("N1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.ChainID == nil || *out.ChainID != 7 {
		t.Fatalf("expected chain_id 7, got %v", out.ChainID)
	}
	if out.GasPrice == nil || *out.GasPrice != 99 {
		t.Fatalf("expected gas_price 99, got %v", out.GasPrice)
	}
}
