// Package wallet implements Wallet Custody (spec §4.3): secp256k1 keypairs,
// per-(wallet,network) balance bookkeeping, EIP-1559 signing, and RPC
// submission against a configured Network.
package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/logging"
)

var log = logging.New()

// SetLogger redirects this package's structured logging.
func SetLogger(l *logrus.Logger) { log = l }

// NetworkBalance tracks escrowed vs. available value for one wallet on one
// network. free + locked >= 0 always; locked is only ever moved by
// lock/unlock, never directly by mint/burn.
type NetworkBalance struct {
	Free   U256 `json:"free"`
	Locked U256 `json:"locked"`
}

// Wallet is the persisted entity, identified by EthAddress.
type Wallet struct {
	EthAddress string                     `json:"eth_address"`
	SecretKey  string                     `json:"secret_key"` // hex, no 0x prefix
	PublicKey  string                     `json:"public_key"` // hex, uncompressed, no 0x prefix
	Networks   map[string]*NetworkBalance `json:"networks"`
	Users      []string                   `json:"users"`
	Transactions []string                 `json:"transactions"`
}

// New generates (or derives) a wallet. If secretKeyHex is empty a fresh
// secp256k1 keypair is drawn from the host RNG; otherwise the public key and
// address are derived from the supplied secret.
func New(secretKeyHex string, rng host.RNG) (*Wallet, error) {
	var priv []byte
	var err error
	if secretKeyHex == "" {
		priv, err = rng.RandomBytes(32)
		if err != nil {
			return nil, apperr.Wrap(apperr.Upstream, "draw secp256k1 seed", err)
		}
	} else {
		priv, err = decodeHex(secretKeyHex)
		if err != nil {
			return nil, apperr.Wrap(apperr.BadRequest, "invalid secret_key", err)
		}
	}
	key, err := ethcrypto.ToECDSA(priv)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "invalid secp256k1 key", err)
	}
	pubBytes := ethcrypto.FromECDSAPub(&key.PublicKey)
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	return &Wallet{
		EthAddress:   addr.Hex(),
		SecretKey:    encodeHex(ethcrypto.FromECDSA(key)),
		PublicKey:    encodeHex(pubBytes),
		Networks:     make(map[string]*NetworkBalance),
		Users:        []string{},
		Transactions: []string{},
	}, nil
}

// AddNetwork binds the wallet to a network with a zero balance, failing
// AlreadyExists if already bound.
func (w *Wallet) AddNetwork(name string) error {
	if _, ok := w.Networks[name]; ok {
		return apperr.Newf(apperr.AlreadyExists, "wallet %s already bound to %s", w.EthAddress, name)
	}
	w.Networks[name] = &NetworkBalance{Free: ZeroU256(), Locked: ZeroU256()}
	return nil
}

func (w *Wallet) balance(network string) (*NetworkBalance, error) {
	b, ok := w.Networks[network]
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, "wallet %s not bound to %s", w.EthAddress, network)
	}
	return b, nil
}

// Lock records that value is escrowed, sanity-checked against an externally
// observed on-chain balance. free is reset to balanceWitness-value (the
// witness is the authoritative on-chain free balance at the time of the
// call), locked accumulates value.
func (w *Wallet) Lock(network string, value, balanceWitness U256, clock host.Clock) (string, error) {
	b, err := w.balance(network)
	if err != nil {
		return "", err
	}
	if Cmp(value, balanceWitness) > 0 {
		return "", apperr.Newf(apperr.Underflow, "lock %s exceeds balance witness %s", value.Hex(), balanceWitness.Hex())
	}
	newFree, err := SubChecked(balanceWitness, value)
	if err != nil {
		return "", apperr.Wrap(apperr.Underflow, "lock free computation", err)
	}
	newLocked := Add(b.Locked, value)
	b.Free = newFree
	b.Locked = newLocked
	proof := w.proof("lock", network, value, clock)
	log.WithFields(logrus.Fields{"wallet": w.EthAddress, "network": network, "value": value.Hex()}).Info("locked")
	return proof, nil
}

// Unlock releases value back to free, failing Underflow if locked is
// insufficient.
func (w *Wallet) Unlock(network string, value U256, clock host.Clock) (string, error) {
	b, err := w.balance(network)
	if err != nil {
		return "", err
	}
	newLocked, err := SubChecked(b.Locked, value)
	if err != nil {
		return "", apperr.Wrap(apperr.Underflow, "unlock exceeds locked balance", err)
	}
	b.Locked = newLocked
	b.Free = Add(b.Free, value)
	proof := w.proof("unlock", network, value, clock)
	log.WithFields(logrus.Fields{"wallet": w.EthAddress, "network": network, "value": value.Hex()}).Info("unlocked")
	return proof, nil
}

// Mint increases free by value, lazily binding the network with a zero
// balance first if the wallet has never held a position there — on the two
// send legs of a swap the engine mints the other leg's network into a
// participant's wallet without that wallet ever having called add_network
// for it.
func (w *Wallet) Mint(network string, value U256) error {
	b, ok := w.Networks[network]
	if !ok {
		b = &NetworkBalance{Free: ZeroU256(), Locked: ZeroU256()}
		w.Networks[network] = b
	}
	b.Free = Add(b.Free, value)
	log.WithFields(logrus.Fields{"wallet": w.EthAddress, "network": network, "value": value.Hex()}).Info("minted")
	return nil
}

// Burn decreases free by value, failing Underflow if insufficient.
func (w *Wallet) Burn(network string, value U256) error {
	b, err := w.balance(network)
	if err != nil {
		return err
	}
	newFree, err := SubChecked(b.Free, value)
	if err != nil {
		return apperr.Wrap(apperr.Underflow, "burn exceeds free balance", err)
	}
	b.Free = newFree
	log.WithFields(logrus.Fields{"wallet": w.EthAddress, "network": network, "value": value.Hex()}).Info("burned")
	return nil
}

// AddUser records reciprocal membership when a User adds this wallet,
// rejecting duplicates (spec §4.4 "may not appear twice").
func (w *Wallet) AddUser(userID string) error {
	for _, u := range w.Users {
		if u == userID {
			return apperr.Newf(apperr.AlreadyExists, "user %s already linked to wallet %s", userID, w.EthAddress)
		}
	}
	w.Users = append(w.Users, userID)
	return nil
}

// AddTransaction records that this wallet participates in tx_id (as source,
// destination, or escrow), rejecting duplicates.
func (w *Wallet) AddTransaction(txID string) error {
	for _, t := range w.Transactions {
		if t == txID {
			return apperr.Newf(apperr.AlreadyExists, "transaction %s already linked to wallet %s", txID, w.EthAddress)
		}
	}
	w.Transactions = append(w.Transactions, txID)
	return nil
}

// proof builds the deterministic attestation string for a balance
// transition: a canonical JSON object over (operation, network, address,
// value, timestamp, new_balances). It is not a cryptographic signature —
// per spec §4.3 a simple canonical-JSON string is acceptable.
func (w *Wallet) proof(operation, network string, value U256, clock host.Clock) string {
	b := w.Networks[network]
	payload := struct {
		Operation   string         `json:"operation"`
		Network     string         `json:"network"`
		Address     string         `json:"address"`
		Value       string         `json:"value"`
		Timestamp   string         `json:"timestamp"`
		NewBalances NetworkBalance `json:"new_balances"`
	}{
		Operation:   operation,
		Network:     network,
		Address:     w.EthAddress,
		Value:       value.Hex(),
		Timestamp:   clock.TrustedTime(),
		NewBalances: *b,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// proof construction cannot fail on a well-formed payload; surface
		// an obviously-broken proof rather than panicking a live handler.
		return fmt.Sprintf(`{"error":"proof encode failed: %v"}`, err)
	}
	return string(raw)
}

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
