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

func TestCreateWelder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, _ := testutil.SetupServices(t, db)
	ctx := context.Background()

	w, err := svcs.Welder.CreateWelder(ctx, &service.CreateWelderRequest{
		ProjectID: "proj-001",
		Stencil:   " jd-77 ",
		Name:      "J. Doe",
	}, "user-1")
	if err != nil {
		t.Fatalf("CreateWelder failed: %v", err)
	}
	// Stencil is normalized to upper case
	if w.Stencil != "JD-77" {
		t.Errorf("stencil = %s, want JD-77", w.Stencil)
	}
	if w.VerificationStatus != entity.WelderUnverified {
		t.Errorf("verification = %s, want unverified", w.VerificationStatus)
	}
}

func TestCreateWelderInvalidStencil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, _ := testutil.SetupServices(t, db)
	ctx := context.Background()

	for _, stencil := range []string{"x", "has spaces", "way-too-long-stencil", "lower!"} {
		_, err := svcs.Welder.CreateWelder(ctx, &service.CreateWelderRequest{
			ProjectID: "proj-001",
			Stencil:   stencil,
		}, "user-1")
		ve, ok := service.AsValidation(err)
		if !ok || ve.Kind != service.KindOutOfRange {
			t.Errorf("stencil %q: expected %s, got %v", stencil, service.KindOutOfRange, err)
		}
	}
}

func TestCreateWelderDuplicateStencil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, _ := testutil.SetupServices(t, db)
	ctx := context.Background()

	testutil.SeedWelder(t, svcs, "proj-001", "JD-88")

	_, err := svcs.Welder.CreateWelder(ctx, &service.CreateWelderRequest{
		ProjectID: "proj-001",
		Stencil:   "jd-88",
	}, "user-1")
	ve, ok := service.AsValidation(err)
	if !ok || ve.Kind != service.KindReferentialConflict {
		t.Fatalf("expected %s, got %v", service.KindReferentialConflict, err)
	}

	// Same stencil in another project is fine
	if _, err := svcs.Welder.CreateWelder(ctx, &service.CreateWelderRequest{
		ProjectID: "proj-002",
		Stencil:   "JD-88",
	}, "user-1"); err != nil {
		t.Errorf("cross-project stencil rejected: %v", err)
	}
}

func TestDeleteWelderReferenced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	ctx := context.Background()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F51")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeFieldWeld)
	welder := testutil.SeedWelder(t, svcs, "proj-001", "JD-99")

	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}
	if _, err := svcs.Progress.AssignWelder(ctx, weld.ID, welder.ID, "user-1"); err != nil {
		t.Fatalf("AssignWelder failed: %v", err)
	}

	err = svcs.Welder.DeleteWelder(ctx, welder.ID)
	ve, ok := service.AsValidation(err)
	if !ok || ve.Kind != service.KindReferentialConflict {
		t.Fatalf("expected %s, got %v", service.KindReferentialConflict, err)
	}

	// An unreferenced welder deletes cleanly
	spare := testutil.SeedWelder(t, svcs, "proj-001", "AB-01")
	if err := svcs.Welder.DeleteWelder(ctx, spare.ID); err != nil {
		t.Fatalf("DeleteWelder failed: %v", err)
	}
	_, err = svcs.Welder.GetWelder(ctx, spare.ID)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
