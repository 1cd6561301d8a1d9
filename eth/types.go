package eth

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/hedeqiang/pulse/internal/hexutil"
)

// Quantity is a hex-encoded unsigned integer as used by Ethereum JSON-RPC
// (e.g. "0x1b4" for 436).
type Quantity uint64

// MarshalJSON renders the quantity as a "0x"-prefixed hex string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeUint64(uint64(q)))
}

// UnmarshalJSON parses a "0x"-prefixed hex string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return fmt.Errorf("eth: invalid quantity %q: %w", s, err)
	}
	*q = Quantity(n)
	return nil
}

// BigQuantity is an arbitrary-precision hex-encoded quantity, used for
// values that can exceed 64 bits such as balances.
type BigQuantity big.Int

// Int returns the quantity as a *big.Int.
func (q *BigQuantity) Int() *big.Int {
	return (*big.Int)(q)
}

// MarshalJSON renders the quantity as a "0x"-prefixed hex string.
func (q *BigQuantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeBig((*big.Int)(q)))
}

// UnmarshalJSON parses a "0x"-prefixed hex string.
func (q *BigQuantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := hexutil.DecodeBig(s)
	if err != nil {
		return fmt.Errorf("eth: invalid quantity %q: %w", s, err)
	}
	*q = BigQuantity(*n)
	return nil
}

// Address represents a 20-byte Ethereum address.
type Address [20]byte

// HexToAddress converts a "0x"-prefixed hex string to an Address.
func HexToAddress(s string) (Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("eth: invalid address %q: %w", s, err)
	}
	var addr Address
	if len(b) > 20 {
		copy(addr[:], b[len(b)-20:])
	} else {
		copy(addr[20-len(b):], b)
	}
	return addr, nil
}

// MustHexToAddress is like HexToAddress but panics on error.
func MustHexToAddress(s string) Address {
	addr, err := HexToAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Hex returns the EIP-55 checksummed "0x"-prefixed encoding of the address.
func (a Address) Hex() string {
	buf := []byte(hex.EncodeToString(a[:]))

	h := sha3.NewLegacyKeccak256()
	h.Write(buf)
	sum := h.Sum(nil)

	for i, c := range buf {
		if c < 'a' {
			continue // digits keep their case
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			buf[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(buf)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// MarshalJSON renders the address in checksummed hex form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON parses a "0x"-prefixed hex address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	addr, err := HexToAddress(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Hash represents a 32-byte hash.
type Hash [32]byte

// HexToHash converts a "0x"-prefixed hex string to a Hash.
func HexToHash(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("eth: invalid hash %q: %w", s, err)
	}
	var h Hash
	if len(b) > 32 {
		copy(h[:], b[len(b)-32:])
	} else {
		copy(h[32-len(b):], b)
	}
	return h, nil
}

// MustHexToHash is like HexToHash but panics on error.
func MustHexToHash(s string) Hash {
	h, err := HexToHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Hex returns the "0x"-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// MarshalJSON renders the hash in hex form.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON parses a "0x"-prefixed hex hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Bytes is a variable-length byte blob carried as "0x"-prefixed hex.
type Bytes []byte

// MarshalJSON renders the blob in hex form.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(b))
}

// UnmarshalJSON parses a "0x"-prefixed hex blob.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("eth: invalid hex data %q: %w", s, err)
	}
	*b = decoded
	return nil
}

// BlockTag selects the block a state query runs against: a symbolic tag or
// an explicit number.
type BlockTag string

const (
	Latest   BlockTag = "latest"
	Earliest BlockTag = "earliest"
	Pending  BlockTag = "pending"
)

// BlockNumber returns the tag for an explicit block number.
func BlockNumber(n uint64) BlockTag {
	return BlockTag(hexutil.EncodeUint64(n))
}

// CallMsg describes a contract call for eth_call.
type CallMsg struct {
	From     *Address     `json:"from,omitempty"`
	To       Address      `json:"to"`
	Gas      *Quantity    `json:"gas,omitempty"`
	GasPrice *BigQuantity `json:"gasPrice,omitempty"`
	Value    *BigQuantity `json:"value,omitempty"`
	Data     Bytes        `json:"data,omitempty"`
}
