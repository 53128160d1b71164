package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

// ChangeEvents publishes row changes to the change-event topic, keyed by
// table and row id.
type ChangeEvents struct {
	p *Producer
}

func NewChangeEvents(p *Producer) *ChangeEvents { return &ChangeEvents{p: p} }

var _ realtime.Publisher = (*ChangeEvents)(nil)

func (e *ChangeEvents) PublishChange(ctx context.Context, ev realtime.ChangeEvent) error {
	msg, err := EncodeChangeEvent(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, ChangeKey(ev), msg)
}

func ChangeKey(ev realtime.ChangeEvent) []byte {
	if id, ok := ev.Row["id"]; ok && id != nil {
		return []byte(fmt.Sprintf("%s:%v", ev.Table, id))
	}
	return []byte(ev.Table)
}

// EncodeChangeEvent converts ev into a Struct. The row goes through JSON
// first so times and typed values become plain JSON scalars.
func EncodeChangeEvent(ev realtime.ChangeEvent) (*structpb.Struct, error) {
	row := map[string]any{}
	if len(ev.Row) > 0 {
		raw, err := json.Marshal(ev.Row)
		if err != nil {
			return nil, fmt.Errorf("marshal change row: %w", err)
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("normalise change row: %w", err)
		}
	}
	return structpb.NewStruct(map[string]any{
		"table": ev.Table,
		"op":    string(ev.Op),
		"at":    ev.At.UTC().Format(time.RFC3339Nano),
		"row":   row,
	})
}

func DecodeChangeEvent(s *structpb.Struct) (realtime.ChangeEvent, error) {
	m := s.AsMap()
	ev := realtime.ChangeEvent{Row: map[string]any{}}

	table, _ := m["table"].(string)
	if table == "" {
		return ev, fmt.Errorf("change event without table")
	}
	ev.Table = table

	op, _ := m["op"].(string)
	switch realtime.Op(op) {
	case realtime.OpInsert, realtime.OpUpdate, realtime.OpDelete:
		ev.Op = realtime.Op(op)
	default:
		return ev, fmt.Errorf("change event with unknown op %q", op)
	}

	if at, ok := m["at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			ev.At = t
		}
	}
	if row, ok := m["row"].(map[string]any); ok {
		ev.Row = row
	}
	return ev, nil
}
