package realtime

import (
	"context"
	"fmt"
	"time"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type ChangeEvent struct {
	Table string         `json:"table"`
	Op    Op             `json:"op"`
	Row   map[string]any `json:"row"`
	At    time.Time      `json:"at"`
}

// Channel selects change events of one table, optionally narrowed to rows
// whose Column equals Value. PublishedOnly drops rows not flagged published.
type Channel struct {
	Table         string `json:"table"`
	Column        string `json:"column,omitempty"`
	Value         string `json:"value,omitempty"`
	PublishedOnly bool   `json:"published_only,omitempty"`
}

func (c Channel) Matches(ev ChangeEvent) bool {
	if c.Table != "*" && c.Table != ev.Table {
		return false
	}
	if c.PublishedOnly {
		if published, _ := ev.Row["published"].(bool); !published {
			return false
		}
	}
	if c.Column == "" {
		return true
	}
	v, ok := ev.Row[c.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == c.Value
}

type Callback func(ev ChangeEvent)

// Source starts push delivery for a channel; the returned func stops it.
type Source interface {
	Listen(ch Channel, fn Callback) (stop func())
}

type Publisher interface {
	PublishChange(ctx context.Context, ev ChangeEvent) error
}
