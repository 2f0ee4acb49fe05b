package model

// EventKind names a ledger signal.
type EventKind string

const (
	// EventFirstAppearance fires when a player joins the registry.
	EventFirstAppearance EventKind = "FirstAppearance"
	// EventScoreImproved fires on every committed best-score change.
	EventScoreImproved EventKind = "ScoreImproved"
	// EventSkinGranted fires when an entitlement flips to owned.
	EventSkinGranted EventKind = "SkinGranted"
)

// Attribute keys.
const (
	AttrScore    = "score"
	AttrNewScore = "new_score"
	AttrOldScore = "old_score"
	AttrSkinID   = "skin_id"
	AttrPrice    = "price"
)

// Attrs holds the numeric payload of an event.
type Attrs map[string]uint64

// Event is an append-only ledger signal.
// Seq is the logical clock position; ID is the content address (see EventID).
type Event struct {
	ID     string    `json:"id"`
	Seq    int64     `json:"seq"`
	TxID   string    `json:"tx_id"`
	Kind   EventKind `json:"kind"`
	Player Address   `json:"player"`
	Attrs  Attrs     `json:"attrs"`
}

// NewFirstAppearance builds FirstAppearance(player, score).
func NewFirstAppearance(seq int64, txID string, player Address, score uint64) Event {
	return Event{
		Seq:    seq,
		TxID:   txID,
		Kind:   EventFirstAppearance,
		Player: player,
		Attrs:  Attrs{AttrScore: score},
	}
}

// NewScoreImproved builds ScoreImproved(player, newScore, oldScore).
func NewScoreImproved(seq int64, txID string, player Address, newScore, oldScore uint64) Event {
	return Event{
		Seq:    seq,
		TxID:   txID,
		Kind:   EventScoreImproved,
		Player: player,
		Attrs:  Attrs{AttrNewScore: newScore, AttrOldScore: oldScore},
	}
}

// NewSkinGranted builds SkinGranted(player, skinID, price).
func NewSkinGranted(seq int64, txID string, player Address, skinID, price uint64) Event {
	return Event{
		Seq:    seq,
		TxID:   txID,
		Kind:   EventSkinGranted,
		Player: player,
		Attrs:  Attrs{AttrSkinID: skinID, AttrPrice: price},
	}
}

// canonicalObject is the hashed form of an event. ID is excluded.
func (e Event) canonicalObject() map[string]any {
	attrs := make(map[string]any, len(e.Attrs))
	for k, v := range e.Attrs {
		attrs[k] = v
	}
	return map[string]any{
		"seq":    e.Seq,
		"tx_id":  e.TxID,
		"kind":   string(e.Kind),
		"player": e.Player.Hex(),
		"attrs":  attrs,
	}
}
