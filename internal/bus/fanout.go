package bus

import "context"

// Fanout publishes to every target in order and stops at the first failure.
// The deployment wires the in-process bus first so the local projector stays
// fed even when the external queue is down; the outbox row is then retried,
// and the watermark makes the local redelivery a no-op.
type Fanout struct {
	targets []Publisher
}

func NewFanout(targets ...Publisher) *Fanout {
	return &Fanout{targets: targets}
}

func (f *Fanout) Publish(ctx context.Context, topic, key string, payload []byte) error {
	for _, target := range f.targets {
		if err := target.Publish(ctx, topic, key, payload); err != nil {
			return err
		}
	}
	return nil
}
