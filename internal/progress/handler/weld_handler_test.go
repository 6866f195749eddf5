package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/entity"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/handler"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/repository"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/service"
	"github.com/clachance14/PipeTrakV2-sub010/internal/progress/testutil"
)

func setupWeldRouter(t *testing.T) (*gin.Engine, *service.Services, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svcs, repos := testutil.SetupServices(t, db)
	h := handler.NewHandlers(svcs, repos)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1")

	components := api.Group("/components")
	{
		components.POST("", h.Component.Create)
		components.PATCH("/:id/milestones", h.Component.UpdateMilestone)
		components.GET("/:id/events", h.Component.Events)
	}
	welds := api.Group("/welds")
	{
		welds.GET("/:id", h.Weld.Get)
		welds.POST("/:id/nde", h.Weld.RecordNDE)
		welds.PUT("/:id/welder", h.Weld.AssignWelder)
		welds.POST("/:id/repairs", h.Weld.CreateRepair)
		welds.GET("/:id/history", h.Weld.History)
	}
	welders := api.Group("/welders")
	{
		welders.POST("", h.Welder.Create)
		welders.DELETE("/:id", h.Welder.Delete)
	}
	drawings := api.Group("/drawings")
	{
		drawings.GET("/:id/rollup", h.Drawing.Rollup)
	}
	return r, svcs, repos
}

func TestWeldLifecycleOverHTTP(t *testing.T) {
	r, svcs, repos := setupWeldRouter(t)
	ctx := context.Background()
	token := testutil.DefaultTestToken()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F71")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeFieldWeld)
	welder := testutil.SeedWelder(t, svcs, "proj-001", "JD-20")
	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}

	// Assign welder
	w := testutil.DoRequest(r, "PUT", "/api/v1/welds/"+weld.ID+"/welder",
		gin.H{"welder_id": welder.ID}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("assign welder status = %d, body = %s", w.Code, w.Body.String())
	}

	// Complete the production milestones
	for _, m := range []string{entity.MilestoneFitUp, entity.MilestoneWeldComplete} {
		w = testutil.DoRequest(r, "PATCH", "/api/v1/components/"+comp.ID+"/milestones",
			gin.H{"milestone": m, "value": true}, token)
		if w.Code != http.StatusOK {
			t.Fatalf("milestone %s status = %d, body = %s", m, w.Code, w.Body.String())
		}
	}

	// NDE fails, the weld is rejected and fully credited
	w = testutil.DoRequest(r, "POST", "/api/v1/welds/"+weld.ID+"/nde",
		gin.H{"result": "FAIL", "nde_type": "RT", "notes": "porosity"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("nde status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.WeldStatusRejected {
		t.Errorf("status = %v, want rejected", data["status"])
	}

	// Create the repair weld
	w = testutil.DoRequest(r, "POST", "/api/v1/welds/"+weld.ID+"/repairs", nil, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("repair status = %d, body = %s", w.Code, w.Body.String())
	}

	// History shows the chain oldest first
	w = testutil.DoRequest(r, "GET", "/api/v1/welds/"+weld.ID+"/history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, body = %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	chain := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}

	// Rollup over HTTP: original 100%, repair 30%
	w = testutil.DoRequest(r, "GET", "/api/v1/drawings/"+drawing.ID+"/rollup", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("rollup status = %d, body = %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	if data["total_components"].(float64) != 2 {
		t.Errorf("total = %v, want 2", data["total_components"])
	}
	if data["avg_percent_complete"].(float64) != 65 {
		t.Errorf("avg = %v, want 65", data["avg_percent_complete"])
	}
}

func TestWeldHandlerErrorMapping(t *testing.T) {
	r, svcs, repos := setupWeldRouter(t)
	ctx := context.Background()
	token := testutil.DefaultTestToken()

	drawing := testutil.SeedDrawing(t, repos, "proj-001", "P-35F72")
	comp := testutil.SeedComponent(t, svcs, drawing.ID, entity.ComponentTypeFieldWeld)
	weld, err := repos.FieldWeld.FindByComponentID(ctx, comp.ID)
	if err != nil {
		t.Fatalf("FindByComponentID failed: %v", err)
	}

	// Validation failure maps to 422 with the error kind
	w := testutil.DoRequest(r, "PATCH", "/api/v1/components/"+comp.ID+"/milestones",
		gin.H{"milestone": entity.MilestoneWeldComplete, "value": true}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["kind"] != service.KindWelderRequired {
		t.Errorf("kind = %v, want %s", data["kind"], service.KindWelderRequired)
	}

	// Unknown weld maps to 404
	w = testutil.DoRequest(r, "GET", "/api/v1/welds/no-such-weld", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	// Deleting a referenced welder maps to 409
	welder := testutil.SeedWelder(t, svcs, "proj-001", "JD-21")
	if _, err := svcs.Progress.AssignWelder(ctx, weld.ID, welder.ID, "user-1"); err != nil {
		t.Fatalf("AssignWelder failed: %v", err)
	}
	w = testutil.DoRequest(r, "DELETE", "/api/v1/welders/"+welder.ID, nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}

	// Missing token maps to 401
	w = testutil.DoRequest(r, "GET", "/api/v1/welds/"+weld.ID, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
