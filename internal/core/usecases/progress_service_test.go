package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/usecases"
)

// --- Mock ProgressRepository (keeps the latest report per region) ---

type mockProgressRepo struct {
	upsertFn func(ctx context.Context, p *domain.Progress) error
	latest   map[int]domain.Progress
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{latest: map[int]domain.Progress{}}
}

func (m *mockProgressRepo) Upsert(ctx context.Context, p *domain.Progress) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, p)
	}
	m.latest[p.RegionIndex] = *p
	return nil
}

func (m *mockProgressRepo) ListByPlan(ctx context.Context, planID string) ([]domain.Progress, error) {
	var out []domain.Progress
	for _, p := range m.latest {
		if p.PlanID == planID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Mock ProgressPublisher ---

type mockSummaryPublisher struct {
	published []domain.PlanProgress
}

func (m *mockSummaryPublisher) PublishSummary(ctx context.Context, s domain.PlanProgress) error {
	m.published = append(m.published, s)
	return nil
}

// --- Mock RequestPublisher ---

type mockRequestPublisher struct {
	publishFn func(ctx context.Context, req domain.PrefetchRequest) error
	sent      []domain.PrefetchRequest
}

func (m *mockRequestPublisher) PublishRequest(ctx context.Context, req domain.PrefetchRequest) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, req); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, req)
	return nil
}

func twoRegionPlan(id string) *mockPlanRepo {
	return &mockPlanRepo{getByIDFn: func(ctx context.Context, planID string) (*domain.PrefetchPlan, error) {
		if planID != id {
			return nil, domain.ErrNotFound
		}
		return &domain.PrefetchPlan{ID: id, Regions: []domain.PrefetchRegion{{Index: 0}, {Index: 1}}}, nil
	}}
}

// --- Tests ---

func TestProgressService_Record(t *testing.T) {
	repo := newMockProgressRepo()
	pub := &mockSummaryPublisher{}
	svc := usecases.NewProgressService(twoRegionPlan("p1"), repo, pub)
	ctx := context.Background()

	if _, err := svc.Record(ctx, domain.Progress{PlanID: "p1", RegionIndex: 0, Completed: 10, Expected: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A newer report for the same region replaces the earlier one.
	if _, err := svc.Record(ctx, domain.Progress{PlanID: "p1", RegionIndex: 0, Completed: 100, Expected: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary, err := svc.Record(ctx, domain.Progress{PlanID: "p1", RegionIndex: 1, Completed: 50, Expected: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Completed != 150 || summary.Expected != 200 {
		t.Errorf("expected 150/200, got %d/%d", summary.Completed, summary.Expected)
	}
	if summary.Fraction != 0.75 {
		t.Errorf("expected fraction 0.75, got %f", summary.Fraction)
	}
	if summary.Done {
		t.Error("plan should not be done yet")
	}
	if len(pub.published) != 3 {
		t.Errorf("expected 3 published summaries, got %d", len(pub.published))
	}
	if repo.latest[1].UpdatedAt.IsZero() {
		t.Error("expected report timestamp to be filled in")
	}
}

func TestProgressService_Record_Invalid(t *testing.T) {
	svc := usecases.NewProgressService(twoRegionPlan("p1"), newMockProgressRepo(), nil)

	testCases := []struct {
		name string
		p    domain.Progress
		want error
	}{
		{"completed above expected", domain.Progress{PlanID: "p1", Completed: 5, Expected: 1}, domain.ErrInvalidArgument},
		{"region outside plan", domain.Progress{PlanID: "p1", RegionIndex: 2, Expected: 1}, domain.ErrInvalidArgument},
		{"unknown plan", domain.Progress{PlanID: "nope", Expected: 1}, domain.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Record(context.Background(), tc.p); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProgressService_Summary(t *testing.T) {
	repo := newMockProgressRepo()
	repo.latest[0] = domain.Progress{PlanID: "p1", RegionIndex: 0, Completed: 3, Expected: 3}
	repo.latest[1] = domain.Progress{PlanID: "p1", RegionIndex: 1, Completed: 7, Expected: 7}

	svc := usecases.NewProgressService(twoRegionPlan("p1"), repo, nil)
	summary, err := svc.Summary(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.Done || summary.Fraction != 1 {
		t.Errorf("expected finished plan, got %+v", summary)
	}
}

func TestProgressService_HandleReport(t *testing.T) {
	repo := newMockProgressRepo()
	svc := usecases.NewProgressService(twoRegionPlan("p1"), repo, nil)
	ctx := context.Background()

	// Poison messages are dropped rather than redelivered.
	if err := svc.HandleReport(ctx, &domain.Progress{PlanID: "gone", Expected: 1}); err != nil {
		t.Errorf("expected unknown plan to be dropped, got %v", err)
	}

	repo.upsertFn = func(ctx context.Context, p *domain.Progress) error { return errors.New("db down") }
	if err := svc.HandleReport(ctx, &domain.Progress{PlanID: "p1", Expected: 1}); err == nil {
		t.Error("expected storage failure to be returned for redelivery")
	}
}

func TestDirectDispatcher_Dispatch(t *testing.T) {
	var marked string
	plans := &mockPlanRepo{markDispatchedFn: func(ctx context.Context, id string, at time.Time) error {
		marked = id
		return nil
	}}
	pub := &mockRequestPublisher{}

	plan := &domain.PrefetchPlan{ID: "p1", Regions: []domain.PrefetchRegion{
		{Index: 0, MinZoom: 8, MaxZoom: 14, TileCount: 10},
		{Index: 1, MinZoom: 8, MaxZoom: 14, TileCount: 12},
	}}

	if err := usecases.NewDirectDispatcher(pub, plans).Dispatch(context.Background(), plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.sent) != 2 || pub.sent[1].RegionIndex != 1 || pub.sent[1].PlanID != "p1" {
		t.Errorf("unexpected requests: %+v", pub.sent)
	}
	if marked != "p1" || plan.DispatchedAt == nil {
		t.Error("expected plan to be marked dispatched")
	}
}

func TestDirectDispatcher_PublishFailure(t *testing.T) {
	markCalled := false
	plans := &mockPlanRepo{markDispatchedFn: func(ctx context.Context, id string, at time.Time) error {
		markCalled = true
		return nil
	}}
	pub := &mockRequestPublisher{publishFn: func(ctx context.Context, req domain.PrefetchRequest) error {
		return errors.New("no responders")
	}}

	plan := &domain.PrefetchPlan{ID: "p1", Regions: []domain.PrefetchRegion{{Index: 0}}}
	if err := usecases.NewDirectDispatcher(pub, plans).Dispatch(context.Background(), plan); err == nil {
		t.Fatal("expected publish error")
	}
	if markCalled || plan.DispatchedAt != nil {
		t.Error("plan must not be marked dispatched after a failed publish")
	}
}
