package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/testutil"
)

func TestApplyMilestoneUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F11")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeValve)

	// First completion
	result, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Receive", true, "user-1")
	if err != nil {
		t.Fatalf("ApplyMilestoneUpdate failed: %v", err)
	}
	if result.Component.PercentComplete != 10 {
		t.Errorf("percent = %v, want 10", result.Component.PercentComplete)
	}
	if result.PreviousValue != nil {
		t.Errorf("previous value = %v, want nil", result.PreviousValue)
	}

	// Install adds 60
	result, err = svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Install", true, "user-1")
	if err != nil {
		t.Fatalf("ApplyMilestoneUpdate failed: %v", err)
	}
	if result.Component.PercentComplete != 70 {
		t.Errorf("percent = %v, want 70", result.Component.PercentComplete)
	}

	// Persisted state matches the returned state
	stored, err := repos.Component.FindByID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.PercentComplete != 70 {
		t.Errorf("stored percent = %v, want 70", stored.PercentComplete)
	}

	events, total, err := repos.Event.FindByComponent(ctx, comp.ID, 1, 50)
	if err != nil {
		t.Fatalf("FindByComponent failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("event count = %d, want 2", total)
	}
	// Newest first
	if events[0].Milestone != "Install" || events[0].Action != entity.EventActionComplete {
		t.Errorf("latest event = %s/%s, want Install/complete", events[0].Milestone, events[0].Action)
	}
}

func TestApplyMilestoneUpdateIdempotentReplay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F12")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeValve)

	if _, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Receive", true, "user-1"); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	// Replaying the same value succeeds and is audited
	result, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Receive", true, "user-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if result.Component.PercentComplete != 10 {
		t.Errorf("percent after replay = %v, want 10", result.Component.PercentComplete)
	}
	if result.PreviousValue != true {
		t.Errorf("previous value = %v, want true", result.PreviousValue)
	}

	events, total, err := repos.Event.FindByComponent(ctx, comp.ID, 1, 50)
	if err != nil {
		t.Fatalf("FindByComponent failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("event count = %d, want 2 (replay must be audited)", total)
	}
	if events[0].Action != entity.EventActionUpdate {
		t.Errorf("replay action = %s, want update", events[0].Action)
	}
	if string(events[0].PrevValue) != "true" || string(events[0].NewValue) != "true" {
		t.Errorf("replay prev/new = %s/%s, want true/true", events[0].PrevValue, events[0].NewValue)
	}
}

func TestApplyMilestoneUpdateRollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F13")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeGasket)

	if _, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Install", true, "user-1"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	result, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, "Install", false, "user-1")
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if result.Component.PercentComplete != 0 {
		t.Errorf("percent after rollback = %v, want 0", result.Component.PercentComplete)
	}

	events, _, err := repos.Event.FindByComponent(ctx, comp.ID, 1, 10)
	if err != nil {
		t.Fatalf("FindByComponent failed: %v", err)
	}
	if events[0].Action != entity.EventActionRollback {
		t.Errorf("action = %s, want rollback", events[0].Action)
	}
}

func TestApplyMilestoneUpdateValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F14")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeValve)

	cases := []struct {
		name      string
		milestone string
		value     interface{}
		wantKind  string
	}{
		{"unknown milestone", "Paint", true, service.KindMilestoneNotInTemplate},
		{"number on discrete", "Install", float64(50), service.KindTypeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, tc.milestone, tc.value, "user-1")
			ve, ok := service.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Kind != tc.wantKind {
				t.Errorf("kind = %s, want %s", ve.Kind, tc.wantKind)
			}
		})
	}

	// Failed validation leaves no trace
	stored, _ := repos.Component.FindByID(ctx, comp.ID)
	if stored.PercentComplete != 0 {
		t.Errorf("percent after failed updates = %v, want 0", stored.PercentComplete)
	}
	_, total, _ := repos.Event.FindByComponent(ctx, comp.ID, 1, 10)
	if total != 0 {
		t.Errorf("event count after failed updates = %d, want 0", total)
	}

	// Unknown component
	_, err := svcs.Progress.ApplyMilestoneUpdate(ctx, "no-such-component", "Install", true, "user-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWeldCompleteRequiresWelder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F15")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeFieldWeld)

	// Fit-up has no welder requirement
	if _, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, entity.MilestoneFitUp, true, "user-1"); err != nil {
		t.Fatalf("fit-up failed: %v", err)
	}

	// Weld Complete without an assigned welder is rejected
	_, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, entity.MilestoneWeldComplete, true, "user-1")
	ve, ok := service.AsValidation(err)
	if !ok || ve.Kind != service.KindWelderRequired {
		t.Fatalf("expected %s, got %v", service.KindWelderRequired, err)
	}

	// After assignment the same update goes through
	welder := testutil.SeedWelder(t, svcs, "proj-001", "JD-42")
	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}
	if _, err := svcs.Progress.AssignWelder(ctx, weld.ID, welder.ID, "user-1"); err != nil {
		t.Fatalf("AssignWelder failed: %v", err)
	}

	result, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, entity.MilestoneWeldComplete, true, "user-1")
	if err != nil {
		t.Fatalf("weld complete failed: %v", err)
	}
	if result.Component.PercentComplete != 90 {
		t.Errorf("percent = %v, want 90", result.Component.PercentComplete)
	}
}

func TestAcceptedMilestoneDrivesWeldStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F16")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeFieldWeld)

	if _, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, entity.MilestoneAccepted, true, "user-1"); err != nil {
		t.Fatalf("accepted update failed: %v", err)
	}
	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}
	if weld.Status != entity.WeldStatusAccepted {
		t.Errorf("status = %s, want accepted", weld.Status)
	}

	// Rolling the terminal milestone back reverts the status
	if _, err := svcs.Progress.ApplyMilestoneUpdate(ctx, comp.ID, entity.MilestoneAccepted, false, "user-1"); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	weld, _ = repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if weld.Status != entity.WeldStatusActive {
		t.Errorf("status after rollback = %s, want active", weld.Status)
	}
}
