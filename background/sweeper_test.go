package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/user/blogplatform-go/users"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestSweeperRunsUntilCancelled(t *testing.T) {
	calls := make(chan time.Time, 16)
	counting := Task{Name: "count", Run: func(_ context.Context, now time.Time) (int64, error) {
		calls <- now
		return 2, nil
	}}
	failing := Task{Name: "fail", Run: func(context.Context, time.Time) (int64, error) {
		return 0, errors.New("boom")
	}}
	s := NewSweeper(5*time.Millisecond, func() time.Time { return fixedNow }, failing, counting)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case now := <-calls:
			if !now.Equal(fixedNow) {
				t.Fatalf("task got %s, want the sweeper clock", now)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("sweep %d never ran", i+1)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if st := s.Stats(); st.Passes < 2 || st.Removed < 4 {
		t.Fatalf("unexpected counters %+v", st)
	}
}

func TestPruneUsedTokens(t *testing.T) {
	ctx := context.Background()
	store := users.NewMemoryStore()
	u := &users.User{Email: "ada@example.com", Username: "ada", PasswordHash: "hash", IsActive: true}
	u.OnCreate(nil, fixedNow)
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.ConsumeVerification(ctx, u.ID, u.Email, "old", fixedNow.Add(-time.Hour), fixedNow.Add(-2*time.Hour)); err != nil {
		t.Fatalf("consume old: %v", err)
	}
	if err := store.ConsumeVerification(ctx, u.ID, u.Email, "fresh", fixedNow.Add(time.Hour), fixedNow); err != nil {
		t.Fatalf("consume fresh: %v", err)
	}

	n, err := PruneUsedTokens(store).Run(ctx, fixedNow)
	if err != nil || n != 1 {
		t.Fatalf("expected one pruned token, got %d, %v", n, err)
	}
	if err := store.ConsumeVerification(ctx, u.ID, u.Email, "fresh", fixedNow.Add(time.Hour), fixedNow); err == nil {
		t.Fatal("unexpired token must stay in the ledger")
	}
}
