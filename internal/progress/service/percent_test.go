package service

import (
	"math/rand"
	"testing"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
)

func weldTemplate() *entity.ProgressTemplate {
	return &entity.ProgressTemplate{
		ComponentType: entity.ComponentTypeFieldWeld,
		Version:       1,
		WorkflowKind:  entity.WorkflowKindDiscrete,
		Milestones: []entity.MilestoneConfig{
			{Name: entity.MilestoneFitUp, Weight: 30, DisplayOrder: 1},
			{Name: entity.MilestoneWeldComplete, Weight: 60, DisplayOrder: 2, RequiresWelder: true},
			{Name: entity.MilestoneAccepted, Weight: 10, DisplayOrder: 3},
		},
	}
}

func spoolTemplate() *entity.ProgressTemplate {
	return &entity.ProgressTemplate{
		ComponentType: entity.ComponentTypeSpool,
		Version:       1,
		WorkflowKind:  entity.WorkflowKindHybrid,
		Milestones: []entity.MilestoneConfig{
			{Name: "Receive", Weight: 5, DisplayOrder: 1},
			{Name: "Erect", Weight: 40, DisplayOrder: 2, IsPartial: true},
			{Name: "Connect", Weight: 40, DisplayOrder: 3},
			{Name: "Punch", Weight: 5, DisplayOrder: 4},
			{Name: "Test", Weight: 5, DisplayOrder: 5},
			{Name: "Restore", Weight: 5, DisplayOrder: 6},
		},
	}
}

func TestCalculatePercentDiscrete(t *testing.T) {
	tpl := weldTemplate()

	cases := []struct {
		name       string
		milestones entity.JSONB
		want       float64
	}{
		{"empty map", entity.JSONB{}, 0},
		{"fit-up only", entity.JSONB{entity.MilestoneFitUp: true}, 30},
		{"fit-up and weld complete", entity.JSONB{
			entity.MilestoneFitUp:        true,
			entity.MilestoneWeldComplete: true,
		}, 90},
		{"all complete", entity.JSONB{
			entity.MilestoneFitUp:        true,
			entity.MilestoneWeldComplete: true,
			entity.MilestoneAccepted:     true,
		}, 100},
		{"false contributes nothing", entity.JSONB{
			entity.MilestoneFitUp:        true,
			entity.MilestoneWeldComplete: false,
		}, 30},
		{"unknown keys ignored", entity.JSONB{
			entity.MilestoneFitUp: true,
			"Paint":               true,
		}, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculatePercent(tpl, tc.milestones)
			if got != tc.want {
				t.Errorf("CalculatePercent() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalculatePercentPartial(t *testing.T) {
	tpl := spoolTemplate()

	// Receive done + Erect at 50% → 5 + 40*0.5 = 25
	got := CalculatePercent(tpl, entity.JSONB{
		"Receive": true,
		"Erect":   float64(50),
	})
	if got != 25 {
		t.Errorf("CalculatePercent() = %v, want 25", got)
	}

	// Fractional weight contribution rounds to 2 decimals
	got = CalculatePercent(tpl, entity.JSONB{"Erect": float64(33)})
	if got != 13.2 {
		t.Errorf("CalculatePercent() = %v, want 13.2", got)
	}

	// Everything at max is exactly 100
	got = CalculatePercent(tpl, entity.JSONB{
		"Receive": true,
		"Erect":   float64(100),
		"Connect": true,
		"Punch":   true,
		"Test":    true,
		"Restore": true,
	})
	if got != 100 {
		t.Errorf("CalculatePercent() = %v, want 100", got)
	}
}

// Full completion always yields exactly 100 for any weight distribution
// summing to 100, and never exceeds 100 for any value assignment.
func TestCalculatePercentBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(6)
		tpl := &entity.ProgressTemplate{ComponentType: "synthetic", Version: 1}
		remaining := 100
		for j := 0; j < n; j++ {
			w := remaining - (n - j - 1) // leave at least 1 per remaining milestone
			if j < n-1 && w > 1 {
				w = 1 + rng.Intn(w)
			} else if j < n-1 {
				w = 1
			} else {
				w = remaining
			}
			remaining -= w
			tpl.Milestones = append(tpl.Milestones, entity.MilestoneConfig{
				Name:         string(rune('A' + j)),
				Weight:       w,
				DisplayOrder: j + 1,
				IsPartial:    rng.Intn(2) == 0,
			})
		}
		if err := tpl.Validate(); err != nil {
			t.Fatalf("synthetic template invalid: %v", err)
		}

		full := entity.JSONB{}
		partial := entity.JSONB{}
		for _, m := range tpl.Milestones {
			full[m.Name] = maxMilestoneValue(&m)
			if m.IsPartial {
				partial[m.Name] = float64(rng.Intn(101))
			} else {
				partial[m.Name] = rng.Intn(2) == 0
			}
		}

		if got := CalculatePercent(tpl, full); got != 100 {
			t.Fatalf("full completion = %v, want 100 (template %+v)", got, tpl.Milestones)
		}
		if got := CalculatePercent(tpl, partial); got < 0 || got > 100 {
			t.Fatalf("partial completion = %v, out of [0,100]", got)
		}
	}
}

func TestValidateMilestoneValue(t *testing.T) {
	discrete := &entity.MilestoneConfig{Name: "Install", Weight: 50}
	partialM := &entity.MilestoneConfig{Name: "Erect", Weight: 50, IsPartial: true}

	if _, err := validateMilestoneValue(discrete, true, 1); err != nil {
		t.Errorf("bool on discrete: unexpected error %v", err)
	}
	if _, err := validateMilestoneValue(discrete, float64(50), 1); err == nil {
		t.Error("number on discrete: expected type mismatch")
	} else if ve, ok := AsValidation(err); !ok || ve.Kind != KindTypeMismatch {
		t.Errorf("expected %s, got %v", KindTypeMismatch, err)
	}

	if _, err := validateMilestoneValue(partialM, float64(55), 1); err != nil {
		t.Errorf("valid partial value: unexpected error %v", err)
	}
	if _, err := validateMilestoneValue(partialM, true, 1); err == nil {
		t.Error("bool on partial: expected type mismatch")
	}
	if _, err := validateMilestoneValue(partialM, float64(101), 1); err == nil {
		t.Error("over 100: expected out of range")
	} else if ve, ok := AsValidation(err); !ok || ve.Kind != KindOutOfRange {
		t.Errorf("expected %s, got %v", KindOutOfRange, err)
	}
	if _, err := validateMilestoneValue(partialM, float64(-1), 1); err == nil {
		t.Error("below 0: expected out of range")
	}

	// Step granularity of 5 rejects off-step values
	if _, err := validateMilestoneValue(partialM, float64(55), 5); err != nil {
		t.Errorf("on-step value with step=5: unexpected error %v", err)
	}
	if _, err := validateMilestoneValue(partialM, float64(52), 5); err == nil {
		t.Error("off-step value with step=5: expected out of range")
	}
}

func TestClassifyAction(t *testing.T) {
	discrete := &entity.MilestoneConfig{Name: "Install", Weight: 50}
	partialM := &entity.MilestoneConfig{Name: "Erect", Weight: 50, IsPartial: true}

	if got := classifyAction(discrete, nil, false, true); got != entity.EventActionComplete {
		t.Errorf("first completion = %s, want complete", got)
	}
	if got := classifyAction(discrete, true, true, false); got != entity.EventActionRollback {
		t.Errorf("uncheck = %s, want rollback", got)
	}
	if got := classifyAction(discrete, true, true, true); got != entity.EventActionUpdate {
		t.Errorf("identical replay = %s, want update", got)
	}
	if got := classifyAction(partialM, float64(80), true, float64(40)); got != entity.EventActionRollback {
		t.Errorf("partial decrease = %s, want rollback", got)
	}
	if got := classifyAction(partialM, float64(40), true, float64(100)); got != entity.EventActionComplete {
		t.Errorf("partial to max = %s, want complete", got)
	}
	if got := classifyAction(partialM, float64(40), true, float64(60)); got != entity.EventActionUpdate {
		t.Errorf("partial increase = %s, want update", got)
	}
}
