// Package hexutil provides utilities for the "0x"-prefixed hexadecimal
// encodings used throughout Ethereum JSON-RPC.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Encode returns the hexadecimal encoding of src with "0x" prefix.
func Encode(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

// Decode decodes a hex string (with or without "0x" prefix) into bytes.
func Decode(s string) ([]byte, error) {
	s = trimPrefix(s)
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// MustDecode is like Decode but panics on error.
func MustDecode(s string) []byte {
	b, err := Decode(s)
	if err != nil {
		panic(fmt.Sprintf("hexutil: invalid hex string %q: %v", s, err))
	}
	return b
}

// EncodeUint64 encodes a uint64 as a "0x"-prefixed hex quantity.
func EncodeUint64(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

// DecodeUint64 parses a "0x"-prefixed hex quantity into a uint64.
func DecodeUint64(s string) (uint64, error) {
	return strconv.ParseUint(trimPrefix(s), 16, 64)
}

// EncodeBig encodes a big integer as a "0x"-prefixed hex quantity.
func EncodeBig(n *big.Int) string {
	return "0x" + n.Text(16)
}

// DecodeBig parses a "0x"-prefixed hex quantity into a big integer.
func DecodeBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(trimPrefix(s), 16)
	if !ok {
		return nil, fmt.Errorf("hexutil: invalid hex quantity %q", s)
	}
	return n, nil
}

func trimPrefix(s string) string {
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}
