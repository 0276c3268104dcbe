package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"evm-pvp-settlement/internal/apperr"
)

// mintBurnABI describes the two ERC-20-style custodial calls for
// escrow/participant legs. Pure encoder, out of scope per spec §1 beyond
// producing correct calldata — grounded on the abigen lesson's
// abi.JSON(...)+Pack(...) pattern. The engine and the command handlers do
// not call these encoders themselves.
const mintBurnABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"mint","outputs":[],"type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"value","type":"uint256"}],"name":"burn","outputs":[],"type":"function"}
]`

var parsedMintBurnABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(mintBurnABI))
	if err != nil {
		panic("wallet: invalid embedded mint/burn ABI: " + err.Error())
	}
	parsedMintBurnABI = parsed
}

// EncodeMintCall packs mint(address,value) -> selector 0x40c10f19 || args.
func EncodeMintCall(to common.Address, value U256) ([]byte, error) {
	data, err := parsedMintBurnABI.Pack("mint", to, value.ToBig())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "pack mint call", err)
	}
	return data, nil
}

// EncodeBurnCall packs burn(address,value).
func EncodeBurnCall(from common.Address, value U256) ([]byte, error) {
	data, err := parsedMintBurnABI.Pack("burn", from, value.ToBig())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "pack burn call", err)
	}
	return data, nil
}
