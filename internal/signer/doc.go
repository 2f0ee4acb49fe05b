// Package signer issues score authorizations.
//
// A Signer holds the secp256k1 key the ledger trusts. Authorize checks the
// claimed score against the configured ceiling, derives a fresh nonce, and
// signs the packed (player, score, timestamp, nonce) payload. It keeps no
// record of what it issued; single use is enforced by the ledger's nonce table.
package signer
