// Package command is the thin JSON-in/notification-out dispatcher spec §6
// describes as "CLI/JSON request dispatching" (explicitly out of core
// scope, but something has to decode a command's JSON body into a call
// against the four core components). One request struct per command,
// matching the field names spec §6 names verbatim.
package command

import "evm-pvp-settlement/internal/wallet"

type networkAddRequest struct {
	NetworkName string  `json:"network_name"`
	ChainID     *uint64 `json:"chain_id,omitempty"`
	RPCURL      string  `json:"rpc_url"`
	GasPrice    *uint64 `json:"gas_price,omitempty"`
	Credentials *string `json:"credentials,omitempty"`
}

type networkRemoveRequest struct {
	NetworkName string `json:"network_name"`
}

type networkSetChainIDRequest struct {
	NetworkName string `json:"network_name"`
	ChainID     uint64 `json:"chain_id"`
}

type networkSetGasPriceRequest struct {
	NetworkName string `json:"network_name"`
	GasPrice    uint64 `json:"gas_price"`
}

type walletAddRequest struct {
	SecretKey string `json:"secret_key,omitempty"`
}

type walletAddNetworkRequest struct {
	EthAddress  string `json:"eth_address"`
	NetworkName string `json:"network_name"`
}

type walletLockRequest struct {
	EthAddress  string      `json:"eth_address"`
	NetworkName string      `json:"network_name"`
	Value       wallet.U256 `json:"value"`
	Balance     wallet.U256 `json:"balance"`
}

type walletUnlockRequest struct {
	EthAddress  string      `json:"eth_address"`
	NetworkName string      `json:"network_name"`
	Value       wallet.U256 `json:"value"`
}

type walletAddressRequest struct {
	EthAddress string `json:"eth_address"`
}

type walletBalanceRequest struct {
	EthAddress  string `json:"eth_address"`
	NetworkName string `json:"network_name"`
}

type walletTxRequest struct {
	EthAddress           string      `json:"eth_address"`
	NetworkName          string      `json:"network_name"`
	ChainID              uint64      `json:"chainId"`
	Nonce                uint64      `json:"nonce"`
	GasLimit             uint64      `json:"gasLimit"`
	To                   string      `json:"to,omitempty"`
	Input                string      `json:"input,omitempty"`
	Value                wallet.U256 `json:"value"`
	MaxFeePerGas         wallet.U256 `json:"maxFeePerGas"`
	MaxPriorityFeePerGas wallet.U256 `json:"maxPriorityFeePerGas"`
	Trace                bool        `json:"trace,omitempty"`
}

type userAddWalletRequest struct {
	EthAddress string `json:"eth_address"`
}

type transactionAddRequest struct {
	SourceAddress          string      `json:"source_address"`
	SourceNetworkName      string      `json:"source_network_name"`
	SourceAmount           wallet.U256 `json:"source_amount"`
	DestinationAddress     string      `json:"destination_address"`
	DestinationNetworkName string      `json:"destination_network_name"`
	DestinationAmount      wallet.U256 `json:"destination_amount"`
}

type transactionGetRequest struct {
	TxID string `json:"tx_id"`
}

type transactionCommitRequest struct {
	TxID              string      `json:"tx_id"`
	SourceAddress     string      `json:"source_address"`
	SourceNetworkName string      `json:"source_network_name"`
	SourceAmount      wallet.U256 `json:"source_amount"`
	EscrowAddress     string      `json:"escrow_address"`
	TxHash            string      `json:"tx_hash,omitempty"`
}

type transactionApplyRequest struct {
	TxID   string `json:"tx_id"`
	TxHash string `json:"tx_hash"`
}

type passthroughRequest struct {
	NetworkName string `json:"network_name"`
	Params      []any  `json:"params,omitempty"`
}
