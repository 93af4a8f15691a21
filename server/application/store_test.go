package application

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"pagehunt/server/domain"
)

func TestStore_UpsertClampsIntoArena(t *testing.T) {
	s := NewStore(domain.DefaultGameConfig())

	got := s.UpsertPlayer(domain.Player{ID: "a", Vec2: domain.Vec2{X: -20, Y: 900}, RespawnTimer: -1, CollectedPages: 99})
	if got.X != 0 || got.Y != 600 {
		t.Errorf("position = %+v, want (0, 600)", got.Vec2)
	}
	if got.RespawnTimer != 0 {
		t.Errorf("RespawnTimer = %f, want 0", got.RespawnTimer)
	}
	if got.CollectedPages != 8 {
		t.Errorf("CollectedPages = %d, want 8", got.CollectedPages)
	}
}

func TestStore_ApplyDeltaLastWriteWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore(domain.DefaultGameConfig())
		s.UpsertPlayer(domain.Player{ID: "a", Name: "first"})

		n := rapid.IntRange(1, 20).Draw(t, "updates")
		var lastX, lastY float64
		for i := 0; i < n; i++ {
			lastX = rapid.Float64Range(0, 800).Draw(t, "x")
			lastY = rapid.Float64Range(0, 600).Draw(t, "y")
			if _, err := s.ApplyDelta("a", domain.PositionDelta(domain.Vec2{X: lastX, Y: lastY})); err != nil {
				t.Fatalf("ApplyDelta() error = %v", err)
			}
		}
		p, _ := s.Player("a")
		if p.X != lastX || p.Y != lastY {
			t.Fatalf("position = %+v, want last write (%f, %f)", p.Vec2, lastX, lastY)
		}
		if p.Name != "first" {
			t.Fatalf("Name = %q, untouched fields must survive", p.Name)
		}
	})
}

func TestStore_ApplyDeltaUnknownPlayer(t *testing.T) {
	s := NewStore(domain.DefaultGameConfig())
	if _, err := s.ApplyDelta("ghost", domain.PlayerDelta{}); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("ApplyDelta() error = %v, want ErrPlayerNotFound", err)
	}
}

func TestStore_MarkItemCollectedIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := domain.DefaultGameConfig()
		s := NewStore(cfg)
		s.UpsertPlayer(domain.Player{ID: "a"})
		s.ResetItems(make([]domain.Item, cfg.PagesToCollect))

		index := rapid.IntRange(0, cfg.PagesToCollect-1).Draw(t, "index")
		repeats := rapid.IntRange(1, 5).Draw(t, "repeats")
		collected := 0
		for i := 0; i < repeats; i++ {
			if ok, _ := s.MarkItemCollected(index, "a"); ok {
				collected++
			}
		}
		if collected != 1 {
			t.Fatalf("collected %d times, want 1", collected)
		}
		if p, _ := s.Player("a"); p.CollectedPages != 1 {
			t.Fatalf("CollectedPages = %d, want 1", p.CollectedPages)
		}
	})
}

func TestStore_MarkItemCollectedWinsOnTarget(t *testing.T) {
	cfg := domain.DefaultGameConfig()
	cfg.PagesToCollect = 2
	s := NewStore(cfg)
	s.UpsertPlayer(domain.Player{ID: "a"})
	s.ResetItems(make([]domain.Item, 3))

	if _, won := s.MarkItemCollected(0, "a"); won {
		t.Fatal("first page should not win")
	}
	if _, won := s.MarkItemCollected(1, "a"); !won {
		t.Fatal("second page should win")
	}
	// 目標を超えた分は勝利にならない
	if _, won := s.MarkItemCollected(2, "a"); won {
		t.Fatal("page beyond the target should not win again")
	}
	if it, _ := s.Item(1); !it.Collected || it.CollectedBy != "a" {
		t.Errorf("item = %+v, want collected by a", it)
	}
	if s.TotalCollected() != 3 {
		t.Errorf("TotalCollected() = %d, want 3", s.TotalCollected())
	}
}

func TestStore_KillAndTickRespawns(t *testing.T) {
	s := NewStore(domain.DefaultGameConfig())
	s.UpsertPlayer(domain.Player{ID: "a", Spectating: true})

	if !s.KillPlayer("a", 1) {
		t.Fatal("KillPlayer() = false")
	}
	if s.KillPlayer("a", 1) {
		t.Fatal("killing a dead player should be a no-op")
	}

	for i := 0; i < 3; i++ {
		if revived := s.TickRespawns(0.25); len(revived) != 0 {
			t.Fatalf("tick %d revived %v too early", i, revived)
		}
	}
	revived := s.TickRespawns(0.25)
	if len(revived) != 1 || revived[0] != "a" {
		t.Fatalf("revived = %v, want [a]", revived)
	}
	p, _ := s.Player("a")
	if p.Dead || p.Spectating || p.RespawnTimer != 0 {
		t.Errorf("player = %+v, want alive and not spectating", p)
	}
}

func TestStore_ReplaceAllKeepsConfigWhenMissing(t *testing.T) {
	cfg := domain.DefaultGameConfig()
	s := NewStore(cfg)
	s.UpsertPlayer(domain.Player{ID: "stale"})

	s.ReplaceAll(Snapshot{
		Players: map[domain.PeerID]domain.Player{"host": {Name: "h"}},
		Items:   []domain.Item{{ID: 7}, {ID: 9}},
	})
	if s.Config() != cfg {
		t.Errorf("Config() = %+v, want unchanged", s.Config())
	}
	if _, ok := s.Player("stale"); ok {
		t.Error("stale player should be dropped")
	}
	if p, ok := s.Player("host"); !ok || p.ID != "host" {
		t.Errorf("Player(host) = %+v, %v; ID should follow the map key", p, ok)
	}
	if it, _ := s.Item(1); it.ID != 1 {
		t.Errorf("Item(1).ID = %d, want re-indexed 1", it.ID)
	}
}

func TestStore_PlayersSortedByID(t *testing.T) {
	s := NewStore(domain.DefaultGameConfig())
	for _, id := range []domain.PeerID{"c", "a", "b"} {
		s.UpsertPlayer(domain.Player{ID: id})
	}
	got := s.Players()
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("Players() = %v, want sorted by id", got)
	}
}
