package bus

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryBusPreservesOrderPerSubscriber(t *testing.T) {
	b := NewMemoryBus()
	ch := b.Subscribe("ledger.entry.appended")

	for i := 0; i < 3; i++ {
		payload := []byte{byte(i)}
		if err := b.Publish(context.Background(), "ledger.entry.appended", "acc-1", payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		msg := <-ch
		if msg.Payload[0] != byte(i) {
			t.Fatalf("message %d delivered out of order: %v", i, msg.Payload)
		}
		if msg.Key != "acc-1" {
			t.Fatalf("key not carried: %s", msg.Key)
		}
	}
}

func TestMemoryBusIgnoresUnrelatedTopics(t *testing.T) {
	b := NewMemoryBus()
	ch := b.Subscribe("TRANSFER_COMPLETED")

	if err := b.Publish(context.Background(), "TRANSFER_FAILED", "tr-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected delivery: %+v", msg)
	default:
	}
}

type recordingPublisher struct {
	calls *[]string
	name  string
	err   error
}

func (p recordingPublisher) Publish(context.Context, string, string, []byte) error {
	*p.calls = append(*p.calls, p.name)
	return p.err
}

func TestFanoutStopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("queue down")
	f := NewFanout(
		recordingPublisher{calls: &calls, name: "local"},
		recordingPublisher{calls: &calls, name: "queue", err: boom},
		recordingPublisher{calls: &calls, name: "never"},
	)
	err := f.Publish(context.Background(), "t", "k", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the queue error, got %v", err)
	}
	if len(calls) != 2 || calls[0] != "local" || calls[1] != "queue" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}
