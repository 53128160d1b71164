package realtime

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domainrt "github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
)

var hubEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "realtime_events_total",
	Help: "Change events received by the hub, by table and op.",
}, []string{"table", "op"})

type listener struct {
	ch domainrt.Channel
	fn domainrt.Callback
}

// Hub is an in-process Source. Publish calls every matching listener
// synchronously, so callbacks must not block.
type Hub struct {
	log *zap.Logger

	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]listener
}

var (
	_ domainrt.Source    = (*Hub)(nil)
	_ domainrt.Publisher = (*Hub)(nil)
)

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:       obs.Component(log, "realtime.hub"),
		listeners: make(map[uint64]listener),
	}
}

func (h *Hub) Listen(ch domainrt.Channel, fn domainrt.Callback) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	h.listeners[id] = listener{ch: ch, fn: fn}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(ev domainrt.ChangeEvent) {
	hubEvents.WithLabelValues(ev.Table, string(ev.Op)).Inc()

	h.mu.RLock()
	matched := make([]domainrt.Callback, 0, len(h.listeners))
	for _, l := range h.listeners {
		if l.ch.Matches(ev) {
			matched = append(matched, l.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range matched {
		h.deliver(fn, ev)
	}
}

func (h *Hub) deliver(fn domainrt.Callback, ev domainrt.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("listener panicked", zap.String("table", ev.Table), zap.Any("panic", r))
		}
	}()
	fn(ev)
}

// PublishChange lets the hub stand in for the broker when Kafka is off.
func (h *Hub) PublishChange(_ context.Context, ev domainrt.ChangeEvent) error {
	h.Publish(ev)
	return nil
}

func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
