package realtime

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	domainrt "github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/httpx"
)

type Registry interface {
	Subscribe(name string, ch domainrt.Channel, fn domainrt.Callback)
	Unsubscribe(name string) bool
	Count() int
}

var streamable = map[string]bool{
	"news": true, "announcements": true, "events": true, "exam_results": true,
	"notifications": true, "profiles": true, "*": true,
}

// contentTables hide drafts from students.
var contentTables = map[string]bool{
	"news": true, "announcements": true, "events": true, "exam_results": true,
}

type Server struct {
	log       *zap.Logger
	reg       Registry
	heartbeat time.Duration
	buffer    int

	done      chan struct{}
	closeOnce sync.Once
}

func NewServer(log *zap.Logger, reg Registry) *Server {
	return &Server{
		log:       log.With(zap.String("component", "api.realtime")),
		reg:       reg,
		heartbeat: 25 * time.Second,
		buffer:    64,
		done:      make(chan struct{}),
	}
}

// Close ends every open stream. Streams opened afterwards end at once.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodGet, "/v1/realtime", s.Active); err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/v1/realtime/{table}", s.Stream)
}

func (s *Server) Active(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if _, err := auth.Require(r.Context(), profile.RoleAdmin); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"active": s.reg.Count()})
}

// channelFor builds the subscription channel. Only staff may watch
// profiles or every table. Students see published content only and their own
// exam results. Everyone but admins sees only their own notifications.
func channelFor(r *http.Request, table string) (domainrt.Channel, error) {
	id, err := auth.Require(r.Context())
	if err != nil {
		return domainrt.Channel{}, err
	}
	if !streamable[table] {
		return domainrt.Channel{}, domain.Invalid("table", "unknown table")
	}
	ch := domainrt.Channel{
		Table:  table,
		Column: r.URL.Query().Get("column"),
		Value:  r.URL.Query().Get("value"),
	}
	if (ch.Column == "") != (ch.Value == "") {
		return ch, domain.Invalid("column", "column and value go together")
	}
	if table == "notifications" && !id.Is(profile.RoleAdmin) {
		ch.Column, ch.Value = "recipient_id", fmt.Sprint(id.ID)
	}
	if id.Is(profile.RoleTeacher, profile.RoleAdmin) {
		return ch, nil
	}
	switch table {
	case "profiles", "*":
		return ch, domain.ErrForbidden
	case "exam_results":
		ch.Column, ch.Value = "student_id", fmt.Sprint(id.ID)
	}
	ch.PublishedOnly = contentTables[table]
	return ch, nil
}

// Stream sends matching change events as server-sent events until the
// client goes away. Each connection holds one registry entry.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ch, err := channelFor(r, params["table"])
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	events := make(chan domainrt.ChangeEvent, s.buffer)
	name := ch.Table + ":" + uuid.NewString()
	log := s.log.With(zap.String("subscription", name))

	s.reg.Subscribe(name, ch, func(ev domainrt.ChangeEvent) {
		select {
		case events <- ev:
		default:
			log.Warn("slow subscriber; event dropped", zap.String("table", ev.Table))
		}
	})
	defer s.reg.Unsubscribe(name)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: subscribed\ndata: {\"name\":%q}\n\n", name)
	if err := rc.Flush(); err != nil {
		log.Warn("stream not flushable", zap.Error(err))
		return
	}

	enc := &runtime.JSONBuiltin{}
	ping := time.NewTicker(s.heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-events:
			data, err := enc.Marshal(ev)
			if err != nil {
				log.Warn("event not encodable", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Op, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
