package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/opsloop/internal/domain"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSummaryAggregatesSession(t *testing.T) {
	store := newStore(t)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return start }
	ctx := context.Background()

	for _, mode := range []domain.Mode{domain.ModeExecute, domain.ModeFix, domain.ModeExecute, domain.ModeChat} {
		if err := store.RecordRequest(ctx, "s1", domain.ModelRequest{Mode: mode, Payload: "x"}); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
	}
	outcomes := []domain.ExecutionOutcome{
		{Command: "false", ExitCode: 1, Duration: 15 * time.Millisecond},
		{Command: "sleep 5", ExitCode: -1, TimedOut: true, Duration: 2 * time.Second},
		{Command: "echo hi", Succeeded: true, Stdout: "hi\n"},
	}
	for _, o := range outcomes {
		if err := store.RecordOutcome(ctx, "s1", o); err != nil {
			t.Fatalf("RecordOutcome() error = %v", err)
		}
	}
	// Another session in the same store stays separate.
	if err := store.RecordOutcome(ctx, "s2", domain.ExecutionOutcome{Command: "ls", Succeeded: true}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Summary(ctx, "s1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := domain.TranscriptSummary{
		SessionID: "s1",
		Started:   time.UnixMilli(start.UnixMilli()),
		Requests:  map[domain.Mode]int{domain.ModeExecute: 2, domain.ModeFix: 1, domain.ModeChat: 1},
		Commands: []domain.CommandRecord{
			{Command: "false", ExitCode: 1, Duration: 15 * time.Millisecond},
			{Command: "sleep 5", ExitCode: -1, TimedOut: true, Duration: 2 * time.Second},
			{Command: "echo hi", Succeeded: true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if got.Failures() != 2 || got.TotalRequests() != 4 {
		t.Fatalf("failures %d requests %d", got.Failures(), got.TotalRequests())
	}
}

func TestSummaryEmptySession(t *testing.T) {
	store := newStore(t)
	got, err := store.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if !got.Started.IsZero() || len(got.Commands) != 0 || got.TotalRequests() != 0 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	a, b := newStore(t), newStore(t)
	ctx := context.Background()
	if err := a.RecordOutcome(ctx, "s", domain.ExecutionOutcome{Command: "ls", Succeeded: true}); err != nil {
		t.Fatal(err)
	}
	got, err := b.Summary(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Commands) != 0 {
		t.Fatalf("in-memory stores share data: %+v", got.Commands)
	}
}
