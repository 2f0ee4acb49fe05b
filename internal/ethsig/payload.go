package ethsig

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/roach88/hiscore/internal/model"
)

// uint256 left-pads v into a 32-byte big-endian word.
func uint256(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

// PayloadHash binds (player, score, timestamp, nonce) into one fixed-layout hash.
// Equivalent to keccak256(abi.encodePacked(address, uint256, uint256, bytes32)).
func PayloadHash(player model.Address, score uint64, timestamp int64, nonce model.Hash) model.Hash {
	return model.Hash(crypto.Keccak256Hash(player[:], uint256(score), uint256(uint64(timestamp)), nonce[:]))
}

// DeriveNonce hashes the claim, the issue time and a random salt into a nonce.
// Equivalent to keccak256(abi.encodePacked(address, uint256, uint256, uint256)).
func DeriveNonce(player model.Address, score uint64, timestamp int64, salt [32]byte) model.Hash {
	return model.Hash(crypto.Keccak256Hash(player[:], uint256(score), uint256(uint64(timestamp)), salt[:]))
}

// PersonalHash applies the EIP-191 "Ethereum Signed Message" prefix to a
// 32-byte payload.
func PersonalHash(payload model.Hash) model.Hash {
	return model.Hash(accounts.TextHash(payload[:]))
}
