// Package ledger is the stateful half of score integrity.
//
// A Ledger verifies signer authorizations, enforces the strictly-improving
// best score rule, appends players to the registry, consumes nonces, and
// owns skin entitlements. Every mutation is one SQLite transaction executed
// by the single goroutine running Run; a rejected request rolls back and
// leaves no trace.
//
// Reads (HasSkin, and the ranking package) go straight to the store and
// observe only committed state.
package ledger
