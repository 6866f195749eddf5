package service_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/testutil"
)

// rejectWeld seeds a field weld on the drawing and drives it to rejected via NDE FAIL.
func rejectWeld(t *testing.T, svcs *service.Services, repos *repository.Repositories, drawingID string) *entity.FieldWeld {
	t.Helper()
	ctx := context.Background()
	comp := testutil.SeedComponent(t, svcs, drawingID, entity.ComponentTypeFieldWeld)
	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}
	rejected, err := svcs.Progress.RecordNDE(ctx, weld.ID, &service.RecordNDERequest{Result: entity.NDEResultFail}, "inspector-1")
	if err != nil {
		t.Fatalf("RecordNDE failed: %v", err)
	}
	return rejected
}

func TestCreateRepairWeld(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F31")
	rejected := rejectWeld(t, svcs, repos, drawing.ID)

	result, err := svcs.Repair.CreateRepairWeld(ctx, rejected.ID, nil, "user-1")
	if err != nil {
		t.Fatalf("CreateRepairWeld failed: %v", err)
	}
	if result.Weld.OriginalWeldID == nil || *result.Weld.OriginalWeldID != rejected.ID {
		t.Errorf("original_weld_id = %v, want %s", result.Weld.OriginalWeldID, rejected.ID)
	}
	if result.Weld.Status != entity.WeldStatusActive {
		t.Errorf("repair status = %s, want active", result.Weld.Status)
	}
	// Repair inherits the original spec
	if result.Weld.WeldType != rejected.WeldType || result.Weld.SpecCode != rejected.SpecCode {
		t.Errorf("spec not inherited: %+v", result.Weld)
	}
	// First preparation milestone is pre-credited
	if result.Component.PercentComplete != 30 {
		t.Errorf("repair percent = %v, want 30", result.Component.PercentComplete)
	}
	if result.Component.DrawingID != drawing.ID {
		t.Errorf("repair drawing = %s, want %s", result.Component.DrawingID, drawing.ID)
	}
}

func TestCreateRepairWeldOverrides(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F32")
	rejected := rejectWeld(t, svcs, repos, drawing.ID)

	result, err := svcs.Repair.CreateRepairWeld(ctx, rejected.ID, &service.RepairOverrides{
		WeldType: "SW",
		NDEType:  "PT",
	}, "user-1")
	if err != nil {
		t.Fatalf("CreateRepairWeld failed: %v", err)
	}
	if result.Weld.WeldType != "SW" {
		t.Errorf("weld_type = %s, want SW", result.Weld.WeldType)
	}
	if result.Weld.NDEType != "PT" {
		t.Errorf("nde_type = %s, want PT", result.Weld.NDEType)
	}
}

func TestRepairChainDepthBound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	// Tight bound so the test stays small
	repair := service.NewRepairService(db, repos, svcs.Registry, svcs.Rollup, zap.NewNop(), 3)

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F33")
	cur := rejectWeld(t, svcs, repos, drawing.ID)

	// A chain of exactly maxDepth repairs is allowed
	for i := 0; i < 3; i++ {
		result, err := repair.CreateRepairWeld(ctx, cur.ID, nil, "user-1")
		if err != nil {
			t.Fatalf("repair %d failed: %v", i+1, err)
		}
		rejected, err := svcs.Progress.RecordNDE(ctx, result.Weld.ID, &service.RecordNDERequest{Result: entity.NDEResultFail}, "inspector-1")
		if err != nil {
			t.Fatalf("RecordNDE on repair %d failed: %v", i+1, err)
		}
		cur = rejected
	}

	// One beyond the bound is refused
	_, err := repair.CreateRepairWeld(ctx, cur.ID, nil, "user-1")
	ve, ok := service.AsValidation(err)
	if !ok || ve.Kind != service.KindRepairChainTooDeep {
		t.Fatalf("expected %s, got %v", service.KindRepairChainTooDeep, err)
	}
}

func TestRepairHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F34")
	original := rejectWeld(t, svcs, repos, drawing.ID)

	r1, err := svcs.Repair.CreateRepairWeld(ctx, original.ID, nil, "user-1")
	if err != nil {
		t.Fatalf("first repair failed: %v", err)
	}
	r1Rejected, err := svcs.Progress.RecordNDE(ctx, r1.Weld.ID, &service.RecordNDERequest{Result: entity.NDEResultFail}, "inspector-1")
	if err != nil {
		t.Fatalf("RecordNDE failed: %v", err)
	}
	r2, err := svcs.Repair.CreateRepairWeld(ctx, r1Rejected.ID, nil, "user-1")
	if err != nil {
		t.Fatalf("second repair failed: %v", err)
	}

	// History is the same chain from any entry point, oldest first
	for _, startID := range []string{original.ID, r1.Weld.ID, r2.Weld.ID} {
		chain, err := svcs.Repair.RepairHistory(ctx, startID)
		if err != nil {
			t.Fatalf("RepairHistory(%s) failed: %v", startID, err)
		}
		if len(chain) != 3 {
			t.Fatalf("chain length = %d, want 3", len(chain))
		}
		if chain[0].Weld.ID != original.ID || chain[1].Weld.ID != r1.Weld.ID || chain[2].Weld.ID != r2.Weld.ID {
			t.Errorf("chain order wrong: %s, %s, %s", chain[0].Weld.ID, chain[1].Weld.ID, chain[2].Weld.ID)
		}
	}
}

func TestRepairHistoryDanglingOriginal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F35")
	original := rejectWeld(t, svcs, repos, drawing.ID)
	r1, err := svcs.Repair.CreateRepairWeld(ctx, original.ID, nil, "user-1")
	if err != nil {
		t.Fatalf("repair failed: %v", err)
	}

	// Simulate an archived original: the dangling reference is treated as
	// the chain start, not an error
	if err := db.Exec("DELETE FROM field_welds WHERE id = ?", original.ID).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	chain, err := svcs.Repair.RepairHistory(ctx, r1.Weld.ID)
	if err != nil {
		t.Fatalf("RepairHistory failed: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length = %d, want 1", len(chain))
	}
	if chain[0].Weld.ID != r1.Weld.ID {
		t.Errorf("chain[0] = %s, want %s", chain[0].Weld.ID, r1.Weld.ID)
	}
}
