// Package network implements the Network Registry (spec §4.2): a catalog
// of EVM-compatible chains keyed by operator-chosen name, mutable without a
// redeploy since RPC parameters vary per chain.
package network

import (
	"github.com/sirupsen/logrus"

	"evm-pvp-settlement/internal/apperr"
	"evm-pvp-settlement/internal/ledger"
	"evm-pvp-settlement/internal/logging"
)

var log = logging.New()

// SetLogger redirects this package's structured logging.
func SetLogger(l *logrus.Logger) { log = l }

// Network is the persisted entity, identified by Name.
type Network struct {
	Name        string  `json:"name" yaml:"name"`
	ChainID     *uint64 `json:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	RPCURL      string  `json:"rpc_url" yaml:"rpc_url"`
	GasPrice    *uint64 `json:"gas_price,omitempty" yaml:"gas_price,omitempty"`
	Credentials *string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// Registry is the Network Registry bound to a ledger Store.
type Registry struct {
	store ledger.Store
}

func New(store ledger.Store) *Registry {
	return &Registry{store: store}
}

// Add registers a new network, failing AlreadyExists on a duplicate name.
func (r *Registry) Add(n Network) error {
	if n.Name == "" {
		return apperr.New(apperr.BadRequest, "network_name is required")
	}
	if n.RPCURL == "" {
		return apperr.New(apperr.BadRequest, "rpc_url is required")
	}
	exists, err := ledger.Exists(r.store, ledger.NetworkTable, n.Name)
	if err != nil {
		return err
	}
	if exists {
		return apperr.Newf(apperr.AlreadyExists, "network %q already exists", n.Name)
	}
	if err := ledger.SaveJSON(r.store, ledger.NetworkTable, n.Name, n); err != nil {
		return err
	}
	if err := ledger.AppendIDIndex(r.store, ledger.NetworkTable, n.Name); err != nil {
		return err
	}
	log.WithField("network", n.Name).Info("network added")
	return nil
}

// Remove deletes a network by name, failing NotFound if absent.
func (r *Registry) Remove(name string) error {
	exists, err := ledger.Exists(r.store, ledger.NetworkTable, name)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Newf(apperr.NotFound, "network %q not found", name)
	}
	if err := r.store.Delete(ledger.NetworkTable, name); err != nil {
		return apperr.Wrap(apperr.Upstream, "delete network", err)
	}
	ids, err := ledger.LoadIDIndex(r.store, ledger.NetworkTable)
	if err != nil {
		return err
	}
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != name {
			filtered = append(filtered, id)
		}
	}
	if err := ledger.SaveJSON(r.store, ledger.NetworkTable, ledger.ALLKey, filtered); err != nil {
		return err
	}
	log.WithField("network", name).Info("network removed")
	return nil
}

// UpdateChainID mutates the chain_id of an existing network.
func (r *Registry) UpdateChainID(name string, chainID uint64) error {
	n, err := r.Load(name)
	if err != nil {
		return err
	}
	n.ChainID = &chainID
	if err := ledger.SaveJSON(r.store, ledger.NetworkTable, name, n); err != nil {
		return err
	}
	log.WithField("network", name).WithField("chain_id", chainID).Info("chain id updated")
	return nil
}

// UpdateGasPrice mutates the gas_price of an existing network.
func (r *Registry) UpdateGasPrice(name string, gasPrice uint64) error {
	n, err := r.Load(name)
	if err != nil {
		return err
	}
	n.GasPrice = &gasPrice
	if err := ledger.SaveJSON(r.store, ledger.NetworkTable, name, n); err != nil {
		return err
	}
	log.WithField("network", name).WithField("gas_price", gasPrice).Info("gas price updated")
	return nil
}

// List returns every registered network name.
func (r *Registry) List() ([]string, error) {
	return ledger.LoadIDIndex(r.store, ledger.NetworkTable)
}

// Load fetches a network by name, failing NotFound if absent.
func (r *Registry) Load(name string) (*Network, error) {
	var n Network
	if err := ledger.LoadJSON(r.store, ledger.NetworkTable, name, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
