package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// OutboxPolicy retries broker publishes for roughly half a minute before the
// message is left for the next outbox tick.
func OutboxPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "outbox",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("outbox retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox retries exhausted", zap.Error(err))
			}
		},
	}
}

// DeliveryPolicy is used by the SMS and email gateways. Attempts below one
// disable retrying.
func DeliveryPolicy(name string, attempts int, log *zap.Logger) Policy {
	if attempts < 1 {
		attempts = 1
	}
	return Policy{
		Name:     name,
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 250 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.1},
		OnAttempt: func(i int, err error) {
			if log != nil && !IsPermanent(err) {
				log.Debug("delivery attempt failed", zap.String("gateway", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
	}
}
