package application

import (
	"math/rand/v2"
	"testing"

	"pagehunt/server/domain"
)

func TestPursuerBehavior_ChasesNearestActive(t *testing.T) {
	b := NewPursuerBehavior(&fixedRand{values: []float64{0.5}}, 1.5)
	p := domain.Pursuer{Vec2: domain.Vec2{X: 100, Y: 100}}
	players := []domain.Player{
		{ID: "dead", Vec2: domain.Vec2{X: 101, Y: 100}, Dead: true},
		{ID: "watching", Vec2: domain.Vec2{X: 100, Y: 102}, Spectating: true},
		{ID: "far", Vec2: domain.Vec2{X: 400, Y: 100}},
		{ID: "near", Vec2: domain.Vec2{X: 100, Y: 200}},
	}

	res := b.Advance(&p, players, referenceTick, testEpoch)
	if res.Target != "near" || p.TargetPlayer != "near" {
		t.Fatalf("target = %s, want near", res.Target)
	}
	if res.Distance != 100 {
		t.Errorf("Distance = %f, want 100", res.Distance)
	}
	if p.Vec2.Dist(domain.Vec2{X: 100, Y: 101.5}) > 1e-9 {
		t.Errorf("position = %+v, want one step toward near", p.Vec2)
	}
	if res.Toggled || p.Visible {
		t.Error("0.5 is above the flicker chance")
	}
}

func TestPursuerBehavior_DoesNotOvershoot(t *testing.T) {
	b := NewPursuerBehavior(&fixedRand{values: []float64{0.5}}, 1.5)
	p := domain.Pursuer{Vec2: domain.Vec2{X: 100, Y: 100}}
	target := domain.Player{ID: "a", Vec2: domain.Vec2{X: 101, Y: 100}}

	b.Advance(&p, []domain.Player{target}, 10*referenceTick, testEpoch)
	if p.Vec2 != target.Vec2 {
		t.Errorf("position = %+v, want %+v", p.Vec2, target.Vec2)
	}
}

func TestPursuerBehavior_NoTargetClearsTarget(t *testing.T) {
	b := NewPursuerBehavior(&fixedRand{values: []float64{0}}, 1.5)
	p := domain.Pursuer{Vec2: domain.Vec2{X: 10, Y: 10}, TargetPlayer: "old"}

	res := b.Advance(&p, nil, referenceTick, testEpoch)
	if res.Target != "" || p.TargetPlayer != "" {
		t.Errorf("target = %q, want none", p.TargetPlayer)
	}
	if p.Visible {
		t.Error("flicker should not run without a target")
	}
	if p.Pulse == 0 {
		t.Error("pulse should advance every tick")
	}
}

func TestPursuerBehavior_FlickerAndCatch(t *testing.T) {
	// 0 は必ず flickerChance を下回る
	b := NewPursuerBehavior(&fixedRand{values: []float64{0}}, 1.5)
	p := domain.Pursuer{Vec2: domain.Vec2{X: 100, Y: 100}}
	players := []domain.Player{{ID: "a", Vec2: domain.Vec2{X: 120, Y: 100}}}

	res := b.Advance(&p, players, referenceTick, testEpoch)
	if !res.Toggled || !p.Visible {
		t.Fatal("pursuer should become visible")
	}
	if p.LastSeen != testEpoch.UnixMilli() {
		t.Errorf("LastSeen = %d, want %d", p.LastSeen, testEpoch.UnixMilli())
	}
	if res.Caught != "a" {
		t.Errorf("Caught = %q, want a", res.Caught)
	}

	// 次のtickで再び見えなくなり、見えない間は捕まえない
	res = b.Advance(&p, players, referenceTick, testEpoch)
	if p.Visible || res.Caught != "" {
		t.Errorf("hidden pursuer caught %q", res.Caught)
	}
}

func TestPursuerBehavior_SeededRunsAreReproducible(t *testing.T) {
	run := func() []domain.Pursuer {
		b := NewPursuerBehavior(rand.New(rand.NewPCG(1, 2)), 1.5)
		p := domain.Pursuer{Vec2: domain.Vec2{X: 0, Y: 0}}
		players := []domain.Player{{ID: "a", Vec2: domain.Vec2{X: 700, Y: 500}}}
		var trace []domain.Pursuer
		for i := 0; i < 600; i++ {
			b.Advance(&p, players, referenceTick, testEpoch)
			trace = append(trace, p)
		}
		return trace
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("tick %d diverged: %+v != %+v", i, first[i], second[i])
		}
	}
}
