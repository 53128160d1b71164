package kafka

import (
	"context"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the consumed topic exists before the reader
// joins its group. A failed check is logged and the reader is still built.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, spec TopicSpec, logger *zap.Logger) *Consumer {
	if spec.Name == "" {
		spec.Name = cfg.Topic
	}
	if err := EnsureTopics(ctx, cfg.Brokers, logger, spec); err != nil && logger != nil {
		logger.Warn("ensure topic failed; consumer will retry on fetch", zap.String("topic", spec.Name), zap.Error(err))
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return NewConsumer(cfg)
}
