package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the byte length of an account identity.
const AddressLength = 20

// HashLength is the byte length of a Keccak-256 digest.
const HashLength = 32

// Address is a 20-byte account identity.
type Address [AddressLength]byte

// Hash is a 32-byte digest. Nonces and signing payloads are Hashes.
type Hash [HashLength]byte

// Keccak256 hashes the concatenation of data with legacy Keccak-256
// (the pre-standard padding used by Ethereum, not SHA3-256).
func Keccak256(data ...[]byte) Hash {
	return Hash(crypto.Keccak256Hash(data...))
}

// ParseAddress parses "0x" followed by exactly 40 hex digits.
// Mixed case is accepted without checksum enforcement.
func ParseAddress(s string) (Address, error) {
	if !IsHexAddress(s) {
		return Address{}, NewValidationError(CodeInvalidAddress, fmt.Sprintf("invalid address %q", s))
	}
	return Address(common.HexToAddress(s)), nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Hex returns the lowercase "0x" form. This is the storage key form.
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

// String returns the EIP-55 mixed-case checksum form.
func (a Address) String() string {
	return common.Address(a).Hex()
}

// MarshalJSON renders the checksum form.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses any accepted address form.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseHash parses "0x" followed by exactly 64 hex digits.
func ParseHash(s string) (Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) != HashLength {
		return Hash{}, NewValidationError(CodeInvalidNonce, fmt.Sprintf("invalid hash %q", s))
	}
	return Hash(raw), nil
}

// MustParseHash is like ParseHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Hex returns the lowercase "0x" form.
func (h Hash) Hex() string {
	return common.Hash(h).Hex()
}

func (h Hash) String() string {
	return h.Hex()
}

// MarshalJSON renders the lowercase hex form.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON parses the "0x" hex form.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// IsHexAddress reports whether s is "0x" followed by exactly 40 hex digits.
// Unlike common.IsHexAddress the prefix is required.
func IsHexAddress(s string) bool {
	return len(s) == 2+2*AddressLength && has0xPrefix(s) && common.IsHexAddress(s)
}
