package wallet

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// U256 is a JSON-friendly 256-bit unsigned integer: a thin wrapper over
// holiman/uint256 that marshals to/from the 0x-prefixed big-endian hex
// strings spec §6 requires for every amount field, independent of whatever
// default encoding the library itself picks.
type U256 struct {
	*uint256.Int
}

// ZeroU256 returns a fresh zero-valued U256 (never nil internally).
func ZeroU256() U256 {
	return U256{uint256.NewInt(0)}
}

// ParseU256 parses a 0x-prefixed hex string into a U256.
func ParseU256(hexStr string) (U256, error) {
	if hexStr == "" {
		return U256{}, fmt.Errorf("empty amount")
	}
	v, err := uint256.FromHex(hexStr)
	if err != nil {
		return U256{}, fmt.Errorf("parse amount %q: %w", hexStr, err)
	}
	return U256{v}, nil
}

func (u U256) Hex() string {
	if u.Int == nil {
		return "0x0"
	}
	return u.Int.Hex()
}

func (u U256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Hex())
}

func (u *U256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseU256(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Add returns a+b without mutating either operand. The sum is not checked
// for overflow: it wraps modulo 2^256.
func Add(a, b U256) U256 {
	out := new(uint256.Int)
	out.Add(a.Int, b.Int)
	return U256{out}
}

// SubChecked returns a-b, or an error if it would underflow.
func SubChecked(a, b U256) (U256, error) {
	out := new(uint256.Int)
	if _, overflow := out.SubOverflow(a.Int, b.Int); overflow {
		return U256{}, fmt.Errorf("underflow: %s - %s", a.Hex(), b.Hex())
	}
	return U256{out}, nil
}

// Cmp is a nil-safe wrapper around uint256.Int.Cmp.
func Cmp(a, b U256) int {
	x, y := a.Int, b.Int
	if x == nil {
		x = new(uint256.Int)
	}
	if y == nil {
		y = new(uint256.Int)
	}
	return x.Cmp(y)
}
