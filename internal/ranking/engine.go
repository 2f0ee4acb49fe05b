package ranking

import (
	"context"
	"fmt"

	"github.com/roach88/hiscore/internal/model"
)

// Reader is the read side of the ledger store. *store.Store implements it.
type Reader interface {
	ReadPlayer(ctx context.Context, addr model.Address) (model.PlayerRecord, bool, error)
	PlayerCount(ctx context.Context) (uint64, error)
	ReadRegistry(ctx context.Context) ([]model.PlayerRecord, error)
	ReadRegistryPage(ctx context.Context, offset, limit uint64) ([]model.PlayerRecord, error)
}

// Engine answers ranking queries against committed ledger state.
// Safe for concurrent use; it holds no state of its own.
type Engine struct {
	reader Reader
}

// New creates an Engine over r.
func New(r Reader) *Engine {
	return &Engine{reader: r}
}

// ScoreOf returns the player's best score, or 0 if they never played.
func (e *Engine) ScoreOf(ctx context.Context, addr model.Address) (uint64, error) {
	rec, _, err := e.reader.ReadPlayer(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("score of %s: %w", addr.Hex(), err)
	}
	return rec.BestScore, nil
}

// HasPlayed reports registry membership.
func (e *Engine) HasPlayed(ctx context.Context, addr model.Address) (bool, error) {
	_, found, err := e.reader.ReadPlayer(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("has played %s: %w", addr.Hex(), err)
	}
	return found, nil
}

// Player returns the full registry entry. HasPlayed is false and BestScore 0
// for unknown players.
func (e *Engine) Player(ctx context.Context, addr model.Address) (model.PlayerRecord, error) {
	rec, _, err := e.reader.ReadPlayer(ctx, addr)
	if err != nil {
		return model.PlayerRecord{}, fmt.Errorf("player %s: %w", addr.Hex(), err)
	}
	return rec, nil
}

// PlayerCount returns the registry length.
func (e *Engine) PlayerCount(ctx context.Context) (uint64, error) {
	return e.reader.PlayerCount(ctx)
}

// TopScores returns up to limit players ordered by best score, highest
// first, as parallel address and score slices. Ties go to the earlier
// registration.
//
// limit 0 fails with InvalidLimit. Any other limit yields
// min(limit, PlayerCount) entries.
func (e *Engine) TopScores(ctx context.Context, limit uint64) ([]model.Address, []uint64, error) {
	if limit == 0 {
		return nil, nil, model.NewValidationError(model.CodeInvalidLimit, "limit must be at least 1")
	}

	registry, err := e.reader.ReadRegistry(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("top scores: %w", err)
	}

	k := min(limit, uint64(len(registry)))
	addrs, scores := split(TopK(registry, int(k)))
	return addrs, scores, nil
}

// PlayersPage returns a slice of the registry in insertion order. It never
// rejects a limit: offset past the end or limit 0 yield empty slices.
func (e *Engine) PlayersPage(ctx context.Context, offset, limit uint64) ([]model.Address, []uint64, error) {
	page, err := e.reader.ReadRegistryPage(ctx, offset, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("players page: %w", err)
	}

	addrs, scores := split(page)
	return addrs, scores, nil
}

// split turns records into the parallel-array response shape.
func split(records []model.PlayerRecord) ([]model.Address, []uint64) {
	addrs := make([]model.Address, len(records))
	scores := make([]uint64, len(records))
	for i, r := range records {
		addrs[i] = r.Address
		scores[i] = r.BestScore
	}
	return addrs, scores
}
