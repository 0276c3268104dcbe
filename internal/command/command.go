package command

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/host"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/logging"
	"evm-pvp-settlement/internal/network"
	"evm-pvp-settlement/internal/pvp"
	"evm-pvp-settlement/internal/user"
	"evm-pvp-settlement/internal/wallet"
)

var log = logging.New()

// SetLogger redirects this package's structured logging.
func SetLogger(l *logrus.Logger) { log = l }

// Dispatcher binds the command surface (spec §6) to the four core
// components. It holds no request-scoped state; every call takes a fresh
// host.Runtime snapshot, per spec §5's "handlers obtain snapshots at call
// time".
type Dispatcher struct {
	Networks *network.Registry
	Wallets  *wallet.Store
	Users    *user.Store
	Engine   *pvp.Engine
}

func New(store ledger.Store) *Dispatcher {
	networks := network.New(store)
	wallets := wallet.NewStore(store)
	users := user.NewStore(store, wallets)
	return &Dispatcher{
		Networks: networks,
		Wallets:  wallets,
		Users:    users,
		Engine:   pvp.New(store, networks, wallets, users),
	}
}

type handlerFunc func(d *Dispatcher, ctx context.Context, rt host.Runtime, raw json.RawMessage) (string, error)

// table is the command-name dispatch table called out by spec §9's design
// note on dispatch structure, extended from the PvP state machine to the
// whole command surface rather than a long if/else chain of command names.
var table = map[string]handlerFunc{
	"network_add":           handleNetworkAdd,
	"network_remove":        handleNetworkRemove,
	"network_set_chain_id":  handleNetworkSetChainID,
	"network_set_gas_price": handleNetworkSetGasPrice,
	"networks_all":          handleNetworksAll,

	"wallet_add":             handleWalletAdd,
	"wallet_add_network":     handleWalletAddNetwork,
	"wallet_lock":            handleWalletLock,
	"wallet_unlock":          handleWalletUnlock,
	"wallet_address":         handleWalletAddress,
	"wallet_secret_key":      handleWalletSecretKey,
	"wallet_public_key":      handleWalletPublicKey,
	"wallet_networks":        handleWalletNetworks,
	"wallet_balance":         handleWalletBalance,
	"wallet_transfer":        handleWalletTransfer,
	"wallet_deploy_contract": handleWalletDeployContract,
	"wallet_call_contract":   handleWalletCallContract,
	"wallets_all_for_user":   handleWalletsAllForUser,
	"wallets_all":            handleWalletsAll,

	"user_add":        handleUserAdd,
	"user_get":        handleUserGet,
	"user_add_wallet": handleUserAddWallet,
	"users_all":       handleUsersAll,

	"transaction_add":           handleTransactionAdd,
	"transaction_get":           handleTransactionGet,
	"transaction_commit":        handleTransactionCommit,
	"transaction_apply":         handleTransactionApply,
	"transactions_all_for_user": handleTransactionsAllForUser,

	"get_sender":       handleGetSender,
	"get_trusted_time": handleGetTrustedTime,
}

// Handle decodes one command and returns the notification text the host
// should emit: the success message, or "ERROR: ..." on failure — callers
// that want the error value itself (e.g. to set an HTTP status) get it
// back too, but per spec §7 the string form is the only thing a real host
// notifier ever sees.
func (d *Dispatcher) Handle(ctx context.Context, rt host.Runtime, name string, raw json.RawMessage) (string, error) {
	corrID := uuid.NewString()
	entry := log.WithFields(logrus.Fields{"command": name, "correlation_id": corrID})

	var msg string
	var err error
	if fn, ok := table[name]; ok {
		msg, err = fn(d, ctx, rt, raw)
	} else if isPassthrough(name) {
		msg, err = d.dispatchPassthrough(ctx, name, raw)
	} else {
		err = apperr.Newf(apperr.BadRequest, "unrecognized command %q", name)
		entry.WithError(err).Warn("rejected")
		return notify(rt, "", err)
	}

	if err != nil {
		entry.WithError(err).Error("command failed")
		return notify(rt, "", err)
	}
	entry.Info("command succeeded")
	return notify(rt, msg, nil)
}

func notify(rt host.Runtime, msg string, err error) (string, error) {
	if err != nil {
		text := "ERROR: " + err.Error()
		if rt.Notifier != nil {
			rt.Notifier.Notify(text)
		}
		return text, err
	}
	if rt.Notifier != nil {
		rt.Notifier.Notify(msg)
	}
	return msg, nil
}

func isPassthrough(name string) bool {
	return strings.HasPrefix(name, "eth_") || strings.HasPrefix(name, "web3_") || name == "net_version"
}

func decode[T any](raw json.RawMessage, dst *T) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperr.Wrap(apperr.BadRequest, "decode request", err)
	}
	return nil
}

func senderOf(rt host.Runtime) (string, error) {
	if rt.Sender == nil {
		return "", apperr.New(apperr.Internal, "no sender bound to this runtime")
	}
	s, err := rt.Sender.Sender()
	if err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, "resolve sender", err)
	}
	return s, nil
}

func pvpContext(rt host.Runtime, sender string) pvp.Context {
	return pvp.Context{Sender: sender, Clock: rt.Clock, RNG: rt.RNG}
}

func marshalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "encode response", err)
	}
	return string(raw), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apperr.Newf(apperr.BadRequest, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func optionalInputHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "decode input", err)
	}
	return data, nil
}
