// Package store provides SQLite-backed durable storage for the score ledger.
//
// The store holds:
//   - Players: the registry (address, best score, registry index)
//   - Nonces: consumed authorization nonces
//   - Skins: owned entitlements, plus the skin_purchases payment trail
//   - Events: the append-only signal log (FirstAppearance, ScoreImproved, SkinGranted)
//
// # Invariants
//
// Append-only registry
//   - registry_index is UNIQUE and assigned as MAX(registry_index)+1 inside the
//     writing transaction, so indexes are dense and insertion-ordered
//   - players rows are never deleted; best_score only moves up (CHECK > 0)
//
// Replay guard
//   - nonces.nonce is the PRIMARY KEY; a second insert fails the transaction
//
// Logical time
//   - events.seq is the ledger's logical clock, never a timestamp
//   - All event queries use ORDER BY seq ASC
//
// # Connections
//
// A Store holds one writer connection and a small read-only pool
// (mode=ro). The file runs in WAL mode, so pool readers see the last
// committed state and never wait on the writer, and a long read never holds
// the writer's connection. In-memory stores are per-connection and use the
// writer for reads too.
//
// Every mutation goes through Store.WithTx on the writer; a returned error
// rolls back all writes of that call.
package store
