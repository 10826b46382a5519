package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/offtimeapp/offtime/internal/database"
	"github.com/offtimeapp/offtime/internal/store"
)

// fakeGenerator counts calls and returns a canned result or error.
type fakeGenerator struct {
	calls  int
	result Result
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, digest string) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	return f.result, nil
}

func setupProviderTest(t *testing.T, gen Generator) (*Provider, *store.UsageStore, int64, string) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	usage := store.NewUsageStore(db)
	summaries := store.NewSummaryStore(db)

	u, err := users.Create("alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewProvider(summaries, usage, gen, logger)

	date := "2025-02-01"
	return p, usage, u.ID, date
}

func seedRecord(t *testing.T, usage *store.UsageStore, userID int64, date string) {
	t.Helper()
	app, err := usage.GetOrCreateApp("com.example.maps", "Maps")
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	day, err := time.ParseInLocation(DateFormat, date, time.Local)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	start := day.Add(9 * time.Hour).UnixMilli()
	if _, err := usage.CreateRecord(userID, app.ID, 120_000, start, start+120_000); err != nil {
		t.Fatalf("create record: %v", err)
	}
}

func TestProviderGeneratesOnce(t *testing.T) {
	gen := &fakeGenerator{result: Result{Summary: "A maps day.", Feedback: "Walk more."}}
	p, usage, userID, date := setupProviderTest(t, gen)
	seedRecord(t, usage, userID, date)

	first, err := p.GetOrGenerate(context.Background(), userID, date)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.Message != "A maps day. Walk more." {
		t.Errorf("message = %q, want %q", first.Message, "A maps day. Walk more.")
	}

	// The second call is served from the cache even if the model would now
	// say something different.
	gen.result = Result{Summary: "changed", Feedback: "changed"}
	second, err := p.GetOrGenerate(context.Background(), userID, date)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.Message != first.Message {
		t.Errorf("second message = %q, want %q", second.Message, first.Message)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestProviderNoData(t *testing.T) {
	gen := &fakeGenerator{result: Result{Summary: "s", Feedback: "f"}}
	p, _, userID, date := setupProviderTest(t, gen)

	_, err := p.GetOrGenerate(context.Background(), userID, date)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if want := fmt.Sprintf("no usage records for %s", date); err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if gen.calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.calls)
	}
}

func TestProviderGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: API status 500", ErrGeneration)}
	p, usage, userID, date := setupProviderTest(t, gen)
	seedRecord(t, usage, userID, date)

	_, err := p.GetOrGenerate(context.Background(), userID, date)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}

	// Failures are not cached; the next call tries again.
	gen.err = nil
	gen.result = Result{Summary: "s", Feedback: "f"}
	got, err := p.GetOrGenerate(context.Background(), userID, date)
	if err != nil {
		t.Fatalf("retry call: %v", err)
	}
	if got.Message != "s f" {
		t.Errorf("message = %q, want %q", got.Message, "s f")
	}
}

func TestProviderIgnoresOtherDays(t *testing.T) {
	gen := &fakeGenerator{result: Result{Summary: "s", Feedback: "f"}}
	p, usage, userID, _ := setupProviderTest(t, gen)
	seedRecord(t, usage, userID, "2025-02-01")

	_, err := p.GetOrGenerate(context.Background(), userID, "2025-02-02")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for a day without records, got %v", err)
	}
}

func TestDayBounds(t *testing.T) {
	start, end, err := DayBounds("2025-02-01")
	if err != nil {
		t.Fatalf("day bounds: %v", err)
	}
	if end-start != 24*60*60*1000 {
		t.Errorf("range = %d ms, want 86400000", end-start)
	}

	if _, _, err := DayBounds("02/01/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
}
