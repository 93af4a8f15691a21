package application

import (
	"testing"

	"pagehunt/server/domain"
)

func newQuietAutopilot() *RuleAutopilot {
	// 0.5 はノイズ0、寄り道なし
	return NewRuleAutopilot(&fixedRand{values: []float64{0.5}})
}

func TestRuleAutopilot_HeadsForNearestPage(t *testing.T) {
	a := newQuietAutopilot()
	self := domain.Player{ID: "bot", Vec2: domain.Vec2{X: 400, Y: 300}}
	snap := Snapshot{
		Items: []domain.Item{
			{ID: 0, Vec2: domain.Vec2{X: 400, Y: 50}, Collected: true},
			{ID: 1, Vec2: domain.Vec2{X: 600, Y: 300}},
			{ID: 2, Vec2: domain.Vec2{X: 100, Y: 300}},
		},
	}

	in := a.Decide(self, snap)
	if !in.Right || in.Left || in.Up || in.Down {
		t.Errorf("Decide() = %+v, want right toward page 1", in)
	}
}

func TestRuleAutopilot_FleesVisiblePursuer(t *testing.T) {
	a := newQuietAutopilot()
	self := domain.Player{ID: "bot", Vec2: domain.Vec2{X: 400, Y: 300}}
	snap := Snapshot{
		Items:   []domain.Item{{ID: 0, Vec2: domain.Vec2{X: 300, Y: 300}}},
		Pursuer: domain.Pursuer{Vec2: domain.Vec2{X: 370, Y: 300}, Visible: true},
	}

	in := a.Decide(self, snap)
	if !in.Right || in.Left {
		t.Errorf("Decide() = %+v, want to run away to the right", in)
	}
	if !in.Running {
		t.Error("should run when the pursuer is this close")
	}

	// 見えていなければページを優先
	snap.Pursuer.Visible = false
	if in := a.Decide(self, snap); !in.Left {
		t.Errorf("Decide() = %+v, want left toward the page", in)
	}
}

func TestRuleAutopilot_InactiveDoesNothing(t *testing.T) {
	a := newQuietAutopilot()
	self := domain.Player{ID: "bot", Dead: true}
	snap := Snapshot{Items: []domain.Item{{Vec2: domain.Vec2{X: 10, Y: 10}}}}
	if in := a.Decide(self, snap); !in.IsZero() {
		t.Errorf("Decide() = %+v, want no input", in)
	}
}
