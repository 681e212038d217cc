//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gpxadapter "github.com/samirrijal/routetiles/internal/adapters/gpx"
	"github.com/samirrijal/routetiles/internal/adapters/http"
	"github.com/samirrijal/routetiles/internal/adapters/postgres"
	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/tiling"
	"github.com/samirrijal/routetiles/internal/core/usecases"
	"github.com/samirrijal/routetiles/internal/pkg/config"
)

// setupTestDB connects to the database named by the ROUTETILES_DATABASE_*
// settings. The schema must already be migrated.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("routetiles-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// setupTestDeps wires real repositories, no cache and no dispatcher.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	boxes, err := tiling.NewBoxCalculator(6378137)
	if err != nil {
		t.Fatal(err)
	}
	plans := usecases.NewPlanService(tiling.NewPlanner(boxes), gpxadapter.NewLoader(), postgres.NewPlanRepo(db), nil, nil)

	return &http.Dependencies{
		Plans:    plans,
		Progress: usecases.NewProgressService(plans, postgres.NewProgressRepo(db), nil),
		Defaults: domain.DefaultPlanSettings(),
		DB:       db,
	}
}

func TestPlanLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("POST", "/v1/plans?name=integration", strings.NewReader(bilbaoTrack))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created http.PlansResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	plan := created.Plans[0]

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/plans/"+plan.ID, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stored domain.PrefetchPlan
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(stored.Regions) != len(plan.Regions) {
		t.Errorf("expected %d stored regions, got %d", len(plan.Regions), len(stored.Regions))
	}

	report := `{"region_index":0,"completed":1,"expected":2}`
	req = httptest.NewRequest("POST", "/v1/plans/"+plan.ID+"/progress", strings.NewReader(report))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/plans/"+plan.ID, nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/plans/"+plan.ID+"/progress", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestGetPlan_Integration_NotUUID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	app := setupApp(setupTestDeps(t, setupTestDB(t)))
	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/plans/not-a-uuid", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
