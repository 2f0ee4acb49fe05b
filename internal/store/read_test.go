package store

import (
	"context"
	"testing"

	"github.com/roach88/hiscore/internal/model"
)

func TestReadPlayer_Unknown(t *testing.T) {
	s := createTestStore(t)

	rec, found, err := s.ReadPlayer(context.Background(), alice)
	if err != nil {
		t.Fatalf("ReadPlayer() failed: %v", err)
	}
	if found {
		t.Error("found = true for unknown player")
	}
	want := model.PlayerRecord{Address: alice}
	if rec != want {
		t.Errorf("rec = %+v, want %+v", rec, want)
	}
}

func TestReadPlayer_AfterCommit(t *testing.T) {
	s := createTestStore(t)
	var seq int64
	commitScore(t, s, alice, 10, &seq)
	commitScore(t, s, alice, 25, &seq)

	rec, found, err := s.ReadPlayer(context.Background(), alice)
	if err != nil {
		t.Fatalf("ReadPlayer() failed: %v", err)
	}
	if !found {
		t.Fatal("found = false after commit")
	}
	want := model.PlayerRecord{Address: alice, BestScore: 25, HasPlayed: true, RegistryIndex: 0}
	if rec != want {
		t.Errorf("rec = %+v, want %+v", rec, want)
	}
}

func TestReadRegistry_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	players, err := s.ReadRegistry(context.Background())
	if err != nil {
		t.Fatalf("ReadRegistry() failed: %v", err)
	}
	if players == nil {
		t.Error("players is nil, want empty slice")
	}
}

func TestReadRegistry_InsertionOrder(t *testing.T) {
	s := createTestStore(t)
	var seq int64
	commitScore(t, s, carol, 5, &seq)
	commitScore(t, s, alice, 50, &seq)
	commitScore(t, s, bob, 20, &seq)
	commitScore(t, s, carol, 99, &seq)

	players, err := s.ReadRegistry(context.Background())
	if err != nil {
		t.Fatalf("ReadRegistry() failed: %v", err)
	}
	want := []model.Address{carol, alice, bob}
	if len(players) != len(want) {
		t.Fatalf("len(players) = %d, want %d", len(players), len(want))
	}
	for i, p := range players {
		if p.Address != want[i] {
			t.Errorf("players[%d] = %s, want %s", i, p.Address.Hex(), want[i].Hex())
		}
		if p.RegistryIndex != uint64(i) {
			t.Errorf("players[%d].RegistryIndex = %d", i, p.RegistryIndex)
		}
	}
	if players[0].BestScore != 99 {
		t.Errorf("carol best = %d, want 99", players[0].BestScore)
	}

	count, err := s.PlayerCount(context.Background())
	if err != nil {
		t.Fatalf("PlayerCount() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("PlayerCount() = %d, want 3", count)
	}
}

func TestReadRegistryPage(t *testing.T) {
	s := createTestStore(t)
	var seq int64
	commitScore(t, s, alice, 1, &seq)
	commitScore(t, s, bob, 2, &seq)
	commitScore(t, s, carol, 3, &seq)

	tests := []struct {
		name          string
		offset, limit uint64
		want          []model.Address
	}{
		{"first two", 0, 2, []model.Address{alice, bob}},
		{"tail", 2, 10, []model.Address{carol}},
		{"past end", 3, 10, []model.Address{}},
		{"far past end", 1 << 63, 10, []model.Address{}},
		{"zero limit", 0, 0, []model.Address{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ReadRegistryPage(context.Background(), tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("ReadRegistryPage() failed: %v", err)
			}
			if page == nil {
				t.Fatal("page is nil, want empty slice")
			}
			if len(page) != len(tt.want) {
				t.Fatalf("len(page) = %d, want %d", len(page), len(tt.want))
			}
			for i := range page {
				if page[i].Address != tt.want[i] {
					t.Errorf("page[%d] = %s, want %s", i, page[i].Address.Hex(), tt.want[i].Hex())
				}
			}
		})
	}
}

func TestReadEvents_AfterAndLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	var seq int64
	commitScore(t, s, alice, 10, &seq) // seq 1, 2
	commitScore(t, s, alice, 20, &seq) // seq 3

	all, err := s.ReadEvents(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	kinds := []model.EventKind{model.EventFirstAppearance, model.EventScoreImproved, model.EventScoreImproved}
	for i, ev := range all {
		if ev.Seq != int64(i+1) {
			t.Errorf("all[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.Kind != kinds[i] {
			t.Errorf("all[%d].Kind = %s, want %s", i, ev.Kind, kinds[i])
		}
		if ev.ID != model.MustEventID(ev) {
			t.Errorf("all[%d] id does not round-trip", i)
		}
	}
	if got := all[2].Attrs; got[model.AttrNewScore] != 20 || got[model.AttrOldScore] != 10 {
		t.Errorf("ScoreImproved attrs = %v, want new 20 old 10", got)
	}

	page, err := s.ReadEvents(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(page) != 1 || page[0].Seq != 2 {
		t.Errorf("ReadEvents(1, 1) = %+v, want only seq 2", page)
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 3 {
		t.Errorf("LastSeq() = %d, want 3", last)
	}
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)

	last, err := s.LastSeq(context.Background())
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if last != 0 {
		t.Errorf("LastSeq() = %d, want 0", last)
	}
}
