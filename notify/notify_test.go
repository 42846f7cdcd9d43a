package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	fail bool
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("relay down")
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 10)

	for i := 0; i < 5; i++ {
		if !d.Enqueue(Message{Kind: KindWelcome, To: "a@example.com"}) {
			t.Fatalf("enqueue %d dropped", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	if sender.count() != 5 {
		t.Fatalf("expected all 5 queued messages delivered, got %d", sender.count())
	}
	if d.Enqueue(Message{To: "late@example.com"}) {
		t.Fatal("enqueue after shutdown must be dropped")
	}
	stats := d.Stats()
	if stats.Sent != 5 || stats.Dropped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, 1)
	if !d.Enqueue(Message{To: "a@example.com"}) {
		t.Fatal("first enqueue should fit")
	}
	if d.Enqueue(Message{To: "b@example.com"}) {
		t.Fatal("second enqueue should be dropped")
	}
	if d.Stats().Dropped != 1 {
		t.Fatalf("unexpected stats %+v", d.Stats())
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	d := NewDispatcher(&recordingSender{fail: true}, 1, 4)
	d.Enqueue(Message{To: "a@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = d.Run(ctx)

	if d.Stats().Failed != 1 {
		t.Fatalf("expected one failure, got %+v", d.Stats())
	}
}

type captureQueue struct{ msgs []Message }

func (q *captureQueue) Enqueue(msg Message) bool {
	q.msgs = append(q.msgs, msg)
	return true
}

func TestMailerRendersTemplates(t *testing.T) {
	q := &captureQueue{}
	m, err := NewMailer(q, "Blog Platform", "https://blog.example.com")
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	if err := m.SendPasswordReset("ada@example.com", "<ada>", "tok.en+/", 24*time.Hour); err != nil {
		t.Fatalf("send reset: %v", err)
	}
	if err := m.SendVerification("ada@example.com", "ada", "abc", 72*time.Hour); err != nil {
		t.Fatalf("send verification: %v", err)
	}
	if err := m.SendWelcome("ada@example.com", "ada"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if len(q.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(q.msgs))
	}

	reset := q.msgs[0]
	if reset.Kind != KindPasswordReset || reset.Subject != "Password Reset - Blog Platform" {
		t.Fatalf("unexpected reset message %+v", reset)
	}
	if !strings.Contains(reset.HTMLBody, "https://blog.example.com/reset-password?token=tok.en%2B%2F") {
		t.Fatalf("reset link missing or unescaped: %s", reset.HTMLBody)
	}
	if strings.Contains(reset.HTMLBody, "<ada>") || !strings.Contains(reset.HTMLBody, "1 day") {
		t.Fatalf("username must be escaped and ttl rendered: %s", reset.HTMLBody)
	}
	if !strings.Contains(q.msgs[1].HTMLBody, "3 days") {
		t.Fatalf("expected verification ttl, got %s", q.msgs[1].HTMLBody)
	}
	if !strings.Contains(q.msgs[2].HTMLBody, "Welcome to Blog Platform, ada!") {
		t.Fatalf("unexpected welcome body %s", q.msgs[2].HTMLBody)
	}
}
