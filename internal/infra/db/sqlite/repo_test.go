package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
	"github.com/bryanwahyu/remix-lens/internal/domain/analyst"
	"github.com/bryanwahyu/remix-lens/internal/domain/failures"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func testRecord(t *testing.T, title string) analysis.Record {
	t.Helper()
	raw := fmt.Sprintf(`{"title":%q,"style":"ink","prompt":"p","keyTokens":["a","b"],
		"creativeRemixes":["r"],"outpaintingPrompts":[],"animationPrompts":[],
		"musicPrompts":[],"dialoguePrompts":[],"storyPrompts":[]}`, title)
	r, err := analysis.Extract(raw)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return r
}

func TestAnalystRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalystRepository(openTestDB(t))
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		a := &analyst.Analysis{
			ID:        analyst.AnalysisID(fmt.Sprintf("a-%d", i)),
			TenantID:  "acme",
			MediaURL:  fmt.Sprintf("https://media/%d.png", i),
			Record:    testRecord(t, fmt.Sprintf("T%d", i)),
			Strategy:  string(analysis.StrategyDirect),
			Attempts:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Save(ctx, a); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	other := &analyst.Analysis{ID: "b-1", TenantID: "other", MediaURL: "u", Record: testRecord(t, "X"), Attempts: 1}
	if err := repo.Save(ctx, other); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "acme", "a-3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Record.Title != "T3" || !got.CreatedAt.Equal(base.Add(3*time.Minute)) {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Record.KeyTokens) != analysis.KeyTokenCount {
		t.Errorf("KeyTokens = %q", got.Record.KeyTokens)
	}

	if _, err := repo.Get(ctx, "other", "a-3"); !errors.Is(err, analyst.ErrNotFound) {
		t.Errorf("Get() across tenants error = %v, want ErrNotFound", err)
	}

	page, err := repo.Paginate(ctx, "acme", 2, 2)
	if err != nil {
		t.Fatalf("Paginate() error = %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Data) != 2 {
		t.Fatalf("Paginate() = total %d pages %d len %d", page.Total, page.TotalPages, len(page.Data))
	}
	if page.Data[0].ID != "a-2" || page.Data[1].ID != "a-1" {
		t.Errorf("Paginate() order = %s, %s", page.Data[0].ID, page.Data[1].ID)
	}

	// upsert
	updated := *got
	updated.Attempts = 3
	updated.Record = testRecord(t, "T3 again")
	if err := repo.Save(ctx, &updated); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	got, _ = repo.Get(ctx, "acme", "a-3")
	if got.Attempts != 3 || got.Record.Title != "T3 again" {
		t.Errorf("upsert not applied: %+v", got)
	}

	if err := repo.Delete(ctx, "acme", "a-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "acme", "a-3"); !errors.Is(err, analyst.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestAnalystRepositoryRejectsInvalidRecord(t *testing.T) {
	repo := NewAnalystRepository(openTestDB(t))
	a := &analyst.Analysis{ID: "bad", TenantID: "acme", Record: analysis.Record{Title: "x"}}
	if err := repo.Save(context.Background(), a); err == nil {
		t.Error("Save() stored an invalid record")
	}
}

func TestFailureRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepository(openTestDB(t))
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, perr := analysis.Extract("no object at all")
	for i := 1; i <= 3; i++ {
		f := failures.New("acme", "a-1", "https://media/x.png", i, perr, base.Add(time.Duration(i)*time.Second))
		if err := repo.Save(ctx, f); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if f.ID == 0 {
			t.Errorf("Save() did not set ID")
		}
	}
	if err := repo.Save(ctx, failures.New("acme", "a-2", "", 1, perr, base)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	list, err := repo.ListByAnalysis(ctx, "acme", "a-1", 0)
	if err != nil {
		t.Fatalf("ListByAnalysis() error = %v", err)
	}
	if len(list) != 3 || list[0].Attempt != 3 {
		t.Fatalf("ListByAnalysis() = %d items, first attempt %d", len(list), list[0].Attempt)
	}
	if list[0].Kind != string(analysis.KindExtractionFailed) || list[0].OriginalPreview == "" {
		t.Errorf("unexpected failure row: %+v", list[0])
	}

	recent, err := repo.Recent(ctx, "acme", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Recent() = %d items, want 2", len(recent))
	}
	none, err := repo.Recent(ctx, "other", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("Recent(other) = %v, %v", none, err)
	}
}
