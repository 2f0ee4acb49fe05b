package model

import "math"

// MaxLedgerScore is the largest score the ledger can persist.
// SQLite integers are signed 64-bit.
const MaxLedgerScore = uint64(math.MaxInt64)

// PlayerRecord is one registry entry. Created on the first accepted
// submission; BestScore only ever increases; never deleted.
type PlayerRecord struct {
	Address       Address `json:"address"`
	BestScore     uint64  `json:"best_score"`
	HasPlayed     bool    `json:"has_played"`
	RegistryIndex uint64  `json:"registry_index"`
}

// Authorization is the signer's output. It binds (Player, Score, Timestamp, Nonce)
// and is redeemable exactly once before ExpiresAt.
//
// JSON field names follow the signer wire format.
type Authorization struct {
	Player    Address `json:"-"`
	Score     uint64  `json:"-"`
	Signature string  `json:"signature"`
	Timestamp int64   `json:"timestamp"`
	Nonce     Hash    `json:"nonce"`
	ExpiresAt int64   `json:"expiresAt"`
}

// Submission is a request to record a score.
//
// Auth == nil selects the legacy unauthenticated mode, which only the
// legacy_submit capability flag admits.
type Submission struct {
	Player Address
	Score  uint64
	Auth   *Authorization
}

// Authenticated reports whether the submission carries an authorization.
func (s Submission) Authenticated() bool {
	return s.Auth != nil
}

// Receipt describes a committed submission.
type Receipt struct {
	TxID            string  `json:"tx_id"`
	Seq             int64   `json:"seq"`
	Player          Address `json:"player"`
	Score           uint64  `json:"score"`
	PreviousBest    uint64  `json:"previous_best"`
	FirstAppearance bool    `json:"first_appearance"`
	Events          []Event `json:"events"`
}

// SkinGrant is a request to unlock a skin for a player.
// Payment is ignored in claim mode.
type SkinGrant struct {
	Player  Address
	SkinID  uint64
	Payment uint64
}

// SkinReceipt describes the outcome of a grant. Granted is false when the
// player already owned the skin; nothing was charged or emitted.
type SkinReceipt struct {
	TxID    string  `json:"tx_id,omitempty"`
	Player  Address `json:"player"`
	SkinID  uint64  `json:"skin_id"`
	Granted bool    `json:"granted"`
	Charged uint64  `json:"charged"`
	Events  []Event `json:"events"`
}
