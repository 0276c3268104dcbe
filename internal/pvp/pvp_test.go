package pvp

import (
	"testing"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/network"
	"evm-pvp-settlement/internal/user"
	"evm-pvp-settlement/internal/wallet"
)

// seqRNG draws byte-uniform arrays that increment per call, so successive
// wallet keys and transaction ids drawn from one instance never collide.
type seqRNG struct{ n byte }

func (s *seqRNG) RandomBytes(n int) ([]byte, error) {
	s.n++
	out := make([]byte, n)
	for i := range out {
		out[i] = s.n
	}
	return out, nil
}

type fixedClock string

func (c fixedClock) TrustedTime() string { return string(c) }

type harness struct {
	engine   *Engine
	networks *network.Registry
	wallets  *wallet.Store
	users    *user.Store
	rng      *seqRNG
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := ledger.NewMemStore()
	networks := network.New(store)
	wallets := wallet.NewStore(store)
	users := user.NewStore(store, wallets)
	rng := &seqRNG{}

	if err := networks.Add(network.Network{Name: "N1", RPCURL: "http://n1.example"}); err != nil {
		t.Fatalf("add N1: %v", err)
	}
	if err := networks.Add(network.Network{Name: "N2", RPCURL: "http://n2.example"}); err != nil {
		t.Fatalf("add N2: %v", err)
	}

	return &harness{
		engine:   New(store, networks, wallets, users),
		networks: networks,
		wallets:  wallets,
		users:    users,
		rng:      rng,
	}
}

// fundedWallet creates a wallet prebound and prefunded on one network,
// standing in for a prior external deposit observed by wallet_lock/mint.
func (h *harness) fundedWallet(t *testing.T, owner, net, amountHex string) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New("", h.rng)
	if err != nil {
		t.Fatalf("wallet.New: %v", err)
	}
	if err := w.AddNetwork(net); err != nil {
		t.Fatalf("AddNetwork: %v", err)
	}
	amt, err := wallet.ParseU256(amountHex)
	if err != nil {
		t.Fatalf("ParseU256: %v", err)
	}
	if err := w.Mint(net, amt); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := h.wallets.Create(w, fixedClock("t0")); err != nil {
		t.Fatalf("Create wallet: %v", err)
	}
	u, err := h.users.GetOrCreate(owner)
	if err != nil {
		t.Fatalf("GetOrCreate %s: %v", owner, err)
	}
	if err := h.users.AddWallet(u, w.EthAddress); err != nil {
		t.Fatalf("AddWallet: %v", err)
	}
	return w
}

func (h *harness) ctx(sender string) Context {
	return Context{Sender: sender, Clock: fixedClock("t"), RNG: h.rng}
}

func (h *harness) freeBalance(t *testing.T, address, net string) string {
	t.Helper()
	w, err := h.wallets.Load(address)
	if err != nil {
		t.Fatalf("Load %s: %v", address, err)
	}
	b, ok := w.Networks[net]
	if !ok {
		return "0x0"
	}
	return b.Free.Hex()
}

// TestScenarioA reproduces spec §8 Scenario A end to end: a full PvP swap
// through all four commit/apply round trips, checked against the exact
// escrow and participant balance deltas the walkthrough specifies.
func TestScenarioA(t *testing.T) {
	h := newHarness(t)
	wa := h.fundedWallet(t, "alice", "N1", "0x100")
	wb := h.fundedWallet(t, "bob", "N2", "0x80")

	srcAmt, _ := wallet.ParseU256("0x100")
	dstAmt, _ := wallet.ParseU256("0x80")

	tx, err := h.engine.Create(h.ctx("swift"),
		ParticipantInput{Address: wa.EthAddress, NetworkName: "N1", Amount: srcAmt},
		ParticipantInput{Address: wb.EthAddress, NetworkName: "N2", Amount: dstAmt},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.PaymentVsPayment.StateMachine != StateAwaitingSourceReceive {
		t.Fatalf("expected AwaitingSourceReceive, got %s", tx.PaymentVsPayment.StateMachine)
	}
	escrow, err := h.wallets.Load(tx.EscrowAddress)
	if err != nil {
		t.Fatalf("load escrow: %v", err)
	}
	if _, ok := escrow.Networks["N1"]; !ok {
		t.Fatal("escrow not bound to N1")
	}
	if _, ok := escrow.Networks["N2"]; !ok {
		t.Fatal("escrow not bound to N2")
	}

	// Step 5: alice commits + applies the source receive leg.
	if _, err := h.engine.Commit(h.ctx("alice"), tx.ID, CommitInput{
		SourceAddress: wa.EthAddress, SourceNetworkName: "N1", SourceAmount: srcAmt,
		EscrowAddress: tx.EscrowAddress, TxHash: "0xaa",
	}); err != nil {
		t.Fatalf("commit source receive: %v", err)
	}
	if err := h.engine.Apply(tx.ID, "0xaa"); err != nil {
		t.Fatalf("apply source receive: %v", err)
	}
	if got := h.freeBalance(t, tx.EscrowAddress, "N1"); got != "0x100" {
		t.Fatalf("escrow free[N1] = %s, want 0x100", got)
	}
	if got := h.freeBalance(t, wa.EthAddress, "N1"); got != "0x0" {
		t.Fatalf("Wa free[N1] = %s, want 0x0", got)
	}

	// Step 6: bob commits + applies the destination receive leg.
	if _, err := h.engine.Commit(h.ctx("bob"), tx.ID, CommitInput{
		SourceAddress: wb.EthAddress, SourceNetworkName: "N2", SourceAmount: dstAmt,
		EscrowAddress: tx.EscrowAddress,
	}); err != nil {
		t.Fatalf("commit destination receive: %v", err)
	}
	reloaded, err := h.engine.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h2 := reloaded.PaymentVsPayment.NetworkTransactions[len(reloaded.PaymentVsPayment.NetworkTransactions)-1].TxHash
	if err := h.engine.Apply(tx.ID, h2); err != nil {
		t.Fatalf("apply destination receive: %v", err)
	}
	if got := h.freeBalance(t, tx.EscrowAddress, "N2"); got != "0x80" {
		t.Fatalf("escrow free[N2] = %s, want 0x80", got)
	}
	if got := h.freeBalance(t, wb.EthAddress, "N2"); got != "0x0" {
		t.Fatalf("Wb free[N2] = %s, want 0x0", got)
	}

	// Step 7: swift commits + applies the destination send leg.
	if _, err := h.engine.Commit(h.ctx("swift"), tx.ID, CommitInput{
		SourceAddress: wb.EthAddress, SourceNetworkName: "N1", SourceAmount: srcAmt,
		EscrowAddress: tx.EscrowAddress, TxHash: "0xbb",
	}); err != nil {
		t.Fatalf("commit destination send: %v", err)
	}
	if err := h.engine.Apply(tx.ID, "0xbb"); err != nil {
		t.Fatalf("apply destination send: %v", err)
	}
	if got := h.freeBalance(t, tx.EscrowAddress, "N2"); got != "0x0" {
		t.Fatalf("escrow free[N2] = %s, want 0x0", got)
	}
	if got := h.freeBalance(t, wa.EthAddress, "N2"); got != "0x80" {
		t.Fatalf("Wa free[N2] = %s, want 0x80", got)
	}

	// Step 8: swift commits + applies the source send leg.
	if _, err := h.engine.Commit(h.ctx("swift"), tx.ID, CommitInput{
		SourceAddress: wa.EthAddress, SourceNetworkName: "N2", SourceAmount: dstAmt,
		EscrowAddress: tx.EscrowAddress,
	}); err != nil {
		t.Fatalf("commit source send: %v", err)
	}
	final, err := h.engine.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	h4 := final.PaymentVsPayment.NetworkTransactions[len(final.PaymentVsPayment.NetworkTransactions)-1].TxHash
	if err := h.engine.Apply(tx.ID, h4); err != nil {
		t.Fatalf("apply source send: %v", err)
	}

	if got := h.freeBalance(t, tx.EscrowAddress, "N1"); got != "0x0" {
		t.Fatalf("escrow free[N1] = %s, want 0x0", got)
	}
	if got := h.freeBalance(t, wb.EthAddress, "N1"); got != "0x100" {
		t.Fatalf("Wb free[N1] = %s, want 0x100", got)
	}

	done, err := h.engine.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if done.PaymentVsPayment.StateMachine != StateComplete {
		t.Fatalf("expected Complete, got %s", done.PaymentVsPayment.StateMachine)
	}
}

// TestScenarioBWrongActorUnauthorized reproduces spec §8 Scenario B: a
// caller who owns neither leg's wallet cannot commit.
func TestScenarioBWrongActorUnauthorized(t *testing.T) {
	h := newHarness(t)
	wa := h.fundedWallet(t, "alice", "N1", "0x100")
	wb := h.fundedWallet(t, "bob", "N2", "0x80")
	if _, err := h.users.GetOrCreate("eve"); err != nil {
		t.Fatalf("GetOrCreate eve: %v", err)
	}

	srcAmt, _ := wallet.ParseU256("0x100")
	dstAmt, _ := wallet.ParseU256("0x80")
	tx, err := h.engine.Create(h.ctx("swift"),
		ParticipantInput{Address: wa.EthAddress, NetworkName: "N1", Amount: srcAmt},
		ParticipantInput{Address: wb.EthAddress, NetworkName: "N2", Amount: dstAmt},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = h.engine.Commit(h.ctx("eve"), tx.ID, CommitInput{
		SourceAddress: wa.EthAddress, SourceNetworkName: "N1", SourceAmount: srcAmt,
		EscrowAddress: tx.EscrowAddress, TxHash: "0xaa",
	})
	if !apperr.Is(err, apperr.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

// TestScenarioCReplayApply reproduces spec §8 Scenario C: re-applying an
// already-finalized audit entry fails WrongState instead of mutating
// balances twice.
func TestScenarioCReplayApply(t *testing.T) {
	h := newHarness(t)
	wa := h.fundedWallet(t, "alice", "N1", "0x100")
	wb := h.fundedWallet(t, "bob", "N2", "0x80")

	srcAmt, _ := wallet.ParseU256("0x100")
	dstAmt, _ := wallet.ParseU256("0x80")
	tx, err := h.engine.Create(h.ctx("swift"),
		ParticipantInput{Address: wa.EthAddress, NetworkName: "N1", Amount: srcAmt},
		ParticipantInput{Address: wb.EthAddress, NetworkName: "N2", Amount: dstAmt},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.engine.Commit(h.ctx("alice"), tx.ID, CommitInput{
		SourceAddress: wa.EthAddress, SourceNetworkName: "N1", SourceAmount: srcAmt,
		EscrowAddress: tx.EscrowAddress, TxHash: "0xaa",
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := h.engine.Apply(tx.ID, "0xaa"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	err = h.engine.Apply(tx.ID, "0xaa")
	if !apperr.Is(err, apperr.WrongState) {
		t.Fatalf("expected WrongState on replay, got %v", err)
	}
	if got := h.freeBalance(t, tx.EscrowAddress, "N1"); got != "0x100" {
		t.Fatalf("escrow free[N1] = %s, want 0x100 (no double-apply)", got)
	}
}

// TestScenarioEAmountMismatch reproduces spec §8 Scenario E: a source_amount
// off by one wei is rejected and state is left unchanged.
func TestScenarioEAmountMismatch(t *testing.T) {
	h := newHarness(t)
	wa := h.fundedWallet(t, "alice", "N1", "0x100")
	wb := h.fundedWallet(t, "bob", "N2", "0x80")

	srcAmt, _ := wallet.ParseU256("0x100")
	dstAmt, _ := wallet.ParseU256("0x80")
	tx, err := h.engine.Create(h.ctx("swift"),
		ParticipantInput{Address: wa.EthAddress, NetworkName: "N1", Amount: srcAmt},
		ParticipantInput{Address: wb.EthAddress, NetworkName: "N2", Amount: dstAmt},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	offByOne, _ := wallet.ParseU256("0x101")
	_, err = h.engine.Commit(h.ctx("alice"), tx.ID, CommitInput{
		SourceAddress: wa.EthAddress, SourceNetworkName: "N1", SourceAmount: offByOne,
		EscrowAddress: tx.EscrowAddress, TxHash: "0xaa",
	})
	if !apperr.Is(err, apperr.Mismatch) {
		t.Fatalf("expected Mismatch, got %v", err)
	}
	reloaded, err := h.engine.Get(tx.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.PaymentVsPayment.StateMachine != StateAwaitingSourceReceive {
		t.Fatalf("state should be unchanged, got %s", reloaded.PaymentVsPayment.StateMachine)
	}
}
