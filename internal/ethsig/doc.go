// Package ethsig binds score claims to a secp256k1 signing key.
//
// The layout is the one an EVM contract verifies with ecrecover:
//
//	payload   = keccak256(player[20] || uint256(score) || uint256(timestamp) || nonce[32])
//	digest    = keccak256("\x19Ethereum Signed Message:\n32" || payload)
//	signature = r[32] || s[32] || v[1], v in {27, 28}
//
// Both the signer and the ledger use this package. The ledger holds no
// secret: it trusts a single recovered address.
package ethsig
