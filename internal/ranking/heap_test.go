package ranking

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/model"
)

func addr(i int) model.Address {
	var a model.Address
	a[18] = byte(i >> 8)
	a[19] = byte(i)
	return a
}

func registry(scores ...uint64) []model.PlayerRecord {
	out := make([]model.PlayerRecord, len(scores))
	for i, s := range scores {
		out[i] = model.PlayerRecord{Address: addr(i + 1), BestScore: s, HasPlayed: true, RegistryIndex: uint64(i)}
	}
	return out
}

func TestTopK_OrdersByScoreDescending(t *testing.T) {
	top := TopK(registry(100, 300, 200, 50), 3)

	require.Len(t, top, 3)
	assert.Equal(t, []uint64{300, 200, 100}, scoresOf(top))
}

func TestTopK_TiesGoToEarliestRegistration(t *testing.T) {
	entries := registry(10, 20, 20, 5, 20)

	top := TopK(entries, 2)
	require.Len(t, top, 2)
	assert.Equal(t, addr(2), top[0].Address)
	assert.Equal(t, addr(3), top[1].Address)

	all := TopK(entries, 5)
	assert.Equal(t, []model.Address{addr(2), addr(3), addr(5), addr(1), addr(4)}, addrsOf(all))
}

func TestTopK_KLargerThanRegistry(t *testing.T) {
	top := TopK(registry(1, 2), 10)
	assert.Equal(t, []uint64{2, 1}, scoresOf(top))
}

func TestTopK_Empty(t *testing.T) {
	assert.NotNil(t, TopK(nil, 5))
	assert.Empty(t, TopK(nil, 5))
	assert.Empty(t, TopK(registry(1, 2, 3), 0))
}

func TestTopK_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 50; round++ {
		n := rng.Intn(200)
		scores := make([]uint64, n)
		for i := range scores {
			// Narrow range forces ties.
			scores[i] = uint64(rng.Intn(30) + 1)
		}
		entries := registry(scores...)
		k := rng.Intn(40) + 1

		want := append([]model.PlayerRecord(nil), entries...)
		sort.SliceStable(want, func(i, j int) bool { return want[i].BestScore > want[j].BestScore })
		if k < len(want) {
			want = want[:k]
		}

		got := TopK(entries, k)
		require.Equal(t, addrsOf(want), addrsOf(got), "round %d n=%d k=%d", round, n, k)

		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].BestScore, got[i].BestScore)
		}
	}
}

func TestPage(t *testing.T) {
	entries := registry(5, 4, 3, 2, 1)

	tests := []struct {
		name          string
		offset, limit uint64
		want          []uint64
	}{
		{"first page", 0, 2, []uint64{5, 4}},
		{"second page", 2, 2, []uint64{3, 2}},
		{"partial last page", 3, 10, []uint64{2, 1}},
		{"offset at end", 5, 10, []uint64{}},
		{"offset past end", 100, 10, []uint64{}},
		{"zero limit", 0, 0, []uint64{}},
		{"huge limit", 1, ^uint64(0), []uint64{4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Page(entries, tt.offset, tt.limit)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, scoresOf(got))
		})
	}
}

func scoresOf(records []model.PlayerRecord) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = r.BestScore
	}
	return out
}

func addrsOf(records []model.PlayerRecord) []model.Address {
	out := make([]model.Address, len(records))
	for i, r := range records {
		out[i] = r.Address
	}
	return out
}
