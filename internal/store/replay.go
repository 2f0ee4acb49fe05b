package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/hiscore/internal/model"
)

// AuditReport is the result of folding the event log and comparing the
// derived state against the players and skins tables.
type AuditReport struct {
	Events     int      `json:"events"`
	Players    int      `json:"players"`
	Skins      int      `json:"skins"`
	LastSeq    int64    `json:"last_seq"`
	Mismatches []string `json:"mismatches"`
}

// OK reports whether the log and the tables agree.
func (r AuditReport) OK() bool {
	return len(r.Mismatches) == 0
}

type skinKey struct {
	addr   model.Address
	skinID uint64
}

// Audit replays every event in seq order and checks that the result equals
// the stored registry and entitlements. It also checks per-player event
// invariants: FirstAppearance comes first and appears once, and every
// ScoreImproved strictly raises the previous best.
//
// All reads share one read transaction, so concurrent commits cannot show
// up as mismatches. Mismatches are reported, not returned as errors; err is
// only set when the store cannot be read.
func (s *Store) Audit(ctx context.Context) (AuditReport, error) {
	report := AuditReport{Mismatches: []string{}}

	tx, err := s.rdb.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("audit: begin tx: %w", err)
	}
	defer tx.Rollback()

	events, err := readEvents(ctx, tx, 0, 0)
	if err != nil {
		return report, fmt.Errorf("audit: %w", err)
	}
	report.Events = len(events)

	best := make(map[model.Address]uint64)
	order := []model.Address{}
	owned := make(map[skinKey]bool)

	for _, ev := range events {
		report.LastSeq = ev.Seq

		if want, err := model.EventID(ev); err != nil {
			return report, fmt.Errorf("audit: event %d: %w", ev.Seq, err)
		} else if want != ev.ID {
			report.mismatch("event %d: id %s does not match content %s", ev.Seq, ev.ID, want)
		}

		switch ev.Kind {
		case model.EventFirstAppearance:
			if _, seen := best[ev.Player]; seen {
				report.mismatch("event %d: duplicate FirstAppearance for %s", ev.Seq, ev.Player.Hex())
				continue
			}
			best[ev.Player] = 0
			order = append(order, ev.Player)
		case model.EventScoreImproved:
			prev, seen := best[ev.Player]
			if !seen {
				report.mismatch("event %d: ScoreImproved before FirstAppearance for %s", ev.Seq, ev.Player.Hex())
				continue
			}
			newScore, oldScore := ev.Attrs[model.AttrNewScore], ev.Attrs[model.AttrOldScore]
			if oldScore != prev {
				report.mismatch("event %d: old_score %d, replayed best %d", ev.Seq, oldScore, prev)
			}
			if newScore <= prev {
				report.mismatch("event %d: new_score %d does not raise %d", ev.Seq, newScore, prev)
			}
			best[ev.Player] = newScore
		case model.EventSkinGranted:
			k := skinKey{addr: ev.Player, skinID: ev.Attrs[model.AttrSkinID]}
			if owned[k] {
				report.mismatch("event %d: skin %d granted twice to %s", ev.Seq, k.skinID, ev.Player.Hex())
			}
			owned[k] = true
		default:
			report.mismatch("event %d: unknown kind %q", ev.Seq, ev.Kind)
		}
	}

	registry, err := readRegistry(ctx, tx)
	if err != nil {
		return report, fmt.Errorf("audit: %w", err)
	}
	report.Players = len(registry)

	if len(registry) != len(order) {
		report.mismatch("registry has %d players, log has %d", len(registry), len(order))
	}
	for i, rec := range registry {
		if i < len(order) && order[i] != rec.Address {
			report.mismatch("registry[%d] = %s, log order has %s", i, rec.Address.Hex(), order[i].Hex())
		}
		if rec.RegistryIndex != uint64(i) {
			report.mismatch("registry[%d] has index %d", i, rec.RegistryIndex)
		}
		if want, ok := best[rec.Address]; !ok {
			report.mismatch("player %s has no FirstAppearance", rec.Address.Hex())
		} else if want != rec.BestScore {
			report.mismatch("player %s best %d, replayed %d", rec.Address.Hex(), rec.BestScore, want)
		}
	}

	stored, err := readSkinKeys(ctx, tx)
	if err != nil {
		return report, fmt.Errorf("audit: %w", err)
	}
	report.Skins = len(stored)

	for k := range owned {
		if !stored[k] {
			report.mismatch("skin %d for %s granted in log but not stored", k.skinID, k.addr.Hex())
		}
	}
	for k := range stored {
		if !owned[k] {
			report.mismatch("skin %d for %s stored without SkinGranted", k.skinID, k.addr.Hex())
		}
	}

	// Map iteration above is unordered.
	sort.Strings(report.Mismatches)
	return report, nil
}

func (r *AuditReport) mismatch(format string, args ...any) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

func readSkinKeys(ctx context.Context, q queryer) (map[skinKey]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT address, skin_id FROM skins`)
	if err != nil {
		return nil, fmt.Errorf("query skins: %w", err)
	}
	defer rows.Close()

	keys := make(map[skinKey]bool)
	for rows.Next() {
		var addr string
		var skinID int64
		if err := rows.Scan(&addr, &skinID); err != nil {
			return nil, fmt.Errorf("scan skin: %w", err)
		}
		a, err := model.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("scan skin: %w", err)
		}
		keys[skinKey{addr: a, skinID: uint64(skinID)}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skins: %w", err)
	}
	return keys, nil
}
