package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/eventseat/ticketing/internal/domain"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestReconciler_Reconcile(t *testing.T) {
	t.Parallel()

	seats := newFakeSeatStore(
		[]domain.Seat{
			{ID: "seat-1", EventID: "event-ok", Status: domain.SeatStatusSold},
			{ID: "seat-2", EventID: "event-ok", Status: domain.SeatStatusSold},
			{ID: "seat-3", EventID: "event-drift", Status: domain.SeatStatusSold},
		},
		nil,
	)
	orders := &fakeOrderCounter{counts: map[string]int{
		"event-ok":    2,
		"event-ghost": 1,
	}}

	log, hook := logtest.NewNullLogger()
	rec := NewReconciler(seats, orders, log, time.Hour)

	rec.Reconcile(context.Background())

	got := map[string]logrus.Level{}
	for _, entry := range hook.AllEntries() {
		id, _ := entry.Data["event_id"].(string)
		got[id] = entry.Level
	}
	if got["event-ok"] != logrus.InfoLevel {
		t.Fatalf("expected event-ok logged at info, got %v", got["event-ok"])
	}
	if got["event-drift"] != logrus.WarnLevel {
		t.Fatalf("expected event-drift logged at warn, got %v", got["event-drift"])
	}
	if got["event-ghost"] != logrus.WarnLevel {
		t.Fatalf("expected event-ghost logged at warn, got %v", got["event-ghost"])
	}
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	log := logrus.New()
	log.SetOutput(io.Discard)
	rec := NewReconciler(newFakeSeatStore(nil, nil), &fakeOrderCounter{}, log, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to stop on context cancellation")
	}
}

type fakeOrderCounter struct {
	counts map[string]int
}

func (f *fakeOrderCounter) OrderedSeatCountsByEvent(_ context.Context) (map[string]int, error) {
	return f.counts, nil
}
