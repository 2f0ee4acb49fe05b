package ethsig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/hiscore/internal/model"
)

// SignatureLength is r || s || v.
const SignatureLength = 65

// Signature is a recoverable secp256k1 signature in r || s || v order.
type Signature [SignatureLength]byte

var (
	// ErrMalformedSignature is returned for signatures that cannot be decoded.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrInvalidKey is returned for private keys outside [1, N-1].
	ErrInvalidKey = errors.New("invalid private key")
)

// ParseSignature decodes "0x" + 130 hex digits.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*SignatureLength {
		return sig, fmt.Errorf("%w: want %d bytes", ErrMalformedSignature, SignatureLength)
	}
	if _, err := hex.Decode(sig[:], []byte(s)); err != nil {
		return sig, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return sig, nil
}

// String returns the "0x" lowercase hex form.
func (s Signature) String() string {
	return hexutil.Encode(s[:])
}

// SignPayload produces a personal-sign signature over payload.
func SignPayload(key *secp256k1.PrivateKey, payload model.Hash) Signature {
	digest := PersonalHash(payload)

	// SignCompact returns v || r || s with v = 27 + recovery id for uncompressed keys.
	compact := ecdsa.SignCompact(key, digest[:], false)

	var sig Signature
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]
	return sig
}

// RecoverPayloadSigner returns the address whose key produced sig over payload.
// The recovery byte may be 0/1 or 27/28.
func RecoverPayloadSigner(payload model.Hash, sig Signature) (model.Address, error) {
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return model.Address{}, fmt.Errorf("%w: recovery id %d", ErrMalformedSignature, sig[64])
	}

	raw := make([]byte, SignatureLength)
	copy(raw, sig[:64])
	raw[64] = v

	digest := PersonalHash(payload)
	pub, err := crypto.SigToPub(digest[:], raw)
	if err != nil {
		return model.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return model.Address(crypto.PubkeyToAddress(*pub)), nil
}

// PubkeyToAddress returns the account identity of pub.
func PubkeyToAddress(pub *secp256k1.PublicKey) model.Address {
	return model.Address(crypto.PubkeyToAddress(*pub.ToECDSA()))
}

// GenerateKey creates a fresh signing key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// ParsePrivateKey decodes a 32-byte hex key, with or without "0x".
// The error never contains key material.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 {
		return nil, ErrInvalidKey
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKey
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, ErrInvalidKey
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

// KeyHex renders a private key as "0x" + 64 hex digits.
func KeyHex(key *secp256k1.PrivateKey) string {
	return hexutil.Encode(key.Serialize())
}

// KeyAddress returns the account identity controlled by key.
func KeyAddress(key *secp256k1.PrivateKey) model.Address {
	return PubkeyToAddress(key.PubKey())
}
