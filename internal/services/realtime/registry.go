package realtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domainrt "github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
)

var activeSubs = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "realtime_subscriptions_active",
	Help: "Number of live change-feed subscriptions.",
})

type subscription struct {
	channel domainrt.Channel
	stop    func()
}

// Registry maps a subscription name to one live handle on a Source. The
// active gauge is only written while mu is held.
type Registry struct {
	src domainrt.Source
	log *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

func NewRegistry(src domainrt.Source, log *zap.Logger) *Registry {
	return &Registry{
		src:  src,
		log:  obs.Component(log, "realtime.registry"),
		subs: make(map[string]subscription),
	}
}

// Subscribe starts delivering events matching ch to fn under name. An
// existing subscription with the same name is stopped and replaced.
func (r *Registry) Subscribe(name string, ch domainrt.Channel, fn domainrt.Callback) {
	stop := r.src.Listen(ch, fn)

	r.mu.Lock()
	old, replaced := r.subs[name]
	r.subs[name] = subscription{channel: ch, stop: stop}
	activeSubs.Set(float64(len(r.subs)))
	r.mu.Unlock()

	if replaced {
		old.stop()
	}
	r.log.Debug("subscribed",
		zap.String("name", name),
		zap.String("table", ch.Table),
		zap.Bool("replaced", replaced),
	)
}

// Unsubscribe stops and removes name. It reports whether name was active.
func (r *Registry) Unsubscribe(name string) bool {
	r.mu.Lock()
	sub, ok := r.subs[name]
	delete(r.subs, name)
	activeSubs.Set(float64(len(r.subs)))
	r.mu.Unlock()

	if !ok {
		return false
	}
	sub.stop()
	r.log.Debug("unsubscribed", zap.String("name", name))
	return true
}

func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	subs := r.subs
	r.subs = make(map[string]subscription)
	activeSubs.Set(0)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	if len(subs) > 0 {
		r.log.Info("all subscriptions stopped", zap.Int("count", len(subs)))
	}
}

func (r *Registry) IsActive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[name]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
