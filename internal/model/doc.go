// Package model provides the shared data model for the hiscore ledger.
//
// This package contains the types exchanged between the signer, the ledger
// and the ranking queries. All other internal packages import model; model
// imports nothing internal.
//
// Key design constraints:
//   - Scores are uint64 and strictly positive once committed
//   - Addresses are 20-byte account identities, stored lowercase, rendered EIP-55
//   - Event ordering uses a logical seq, never wall-clock timestamps
//   - Event IDs are content addresses over canonical JSON (see hash.go)
//   - All JSON tags use snake_case, except the signer wire format which
//     mirrors the browser client (expiresAt)
package model
