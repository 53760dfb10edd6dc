package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeConn struct {
	mu     sync.Mutex
	got    []Event
	fail   bool
	closed bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.got = append(c.got, v.(Event))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.got...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHubDeliversPerContest(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer h.Shutdown(context.Background())

	contestA, contestB := uuid.New(), uuid.New()
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(contestA, a)
	h.Register(contestB, b)

	h.Broadcast(Event{Type: EventScoreRecorded, ContestID: contestA})

	waitFor(t, func() bool { return len(a.events()) == 1 })
	if got := a.events()[0].Type; got != EventScoreRecorded {
		t.Errorf("event type = %q, want %q", got, EventScoreRecorded)
	}
	if len(b.events()) != 0 {
		t.Errorf("client of another contest received %d events", len(b.events()))
	}
}

func TestHubDropsBrokenClients(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer h.Shutdown(context.Background())

	contest := uuid.New()
	broken := &fakeConn{fail: true}
	h.Register(contest, broken)

	h.Broadcast(Event{Type: EventResultsPublished, ContestID: contest})
	waitFor(t, func() bool { return h.Clients(contest) == 0 })

	broken.mu.Lock()
	defer broken.mu.Unlock()
	if !broken.closed {
		t.Error("broken connection was not closed")
	}
}
