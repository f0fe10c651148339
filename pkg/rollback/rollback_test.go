package rollback_test

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/opst/wlconf/pkg/conftree"
	"github.com/opst/wlconf/pkg/domain"
	"github.com/opst/wlconf/pkg/rollback"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newStore(options ...rollback.Option) (*rollback.Store, *clock) {
	c := &clock{now: time.Date(2024, 4, 1, 12, 0, 0, 123456789, time.FixedZone("JST", 9*60*60))}
	options = append(
		[]rollback.Option{rollback.WithClock(c.Now), rollback.WithLogger(log.New(io.Discard, "", 0))},
		options...,
	)
	return rollback.New(options...), c
}

var web = domain.Identity{Kind: domain.Deployment, Namespace: "default", Name: "web"}

func TestKey(t *testing.T) {
	at := time.Date(2024, 4, 1, 21, 0, 0, 5, time.FixedZone("JST", 9*60*60))
	actual := rollback.Key(web, at)
	expected := "deployment:default:web:2024-04-01T12:00:00.000000005Z"
	if actual != expected {
		t.Errorf("unexpected key: (actual, expected) = (%s, %s)", actual, expected)
	}
}

func TestStore(t *testing.T) {
	t.Run("it retains a copy of the snapshot", func(t *testing.T) {
		s, _ := newStore()
		snapshot := conftree.Tree{"spec": map[string]any{"replicas": int64(3)}}

		rec := s.Put(web, snapshot, "alice")
		snapshot["spec"].(map[string]any)["replicas"] = int64(100)

		got, ok := s.Get(rec.Key)
		if !ok {
			t.Fatal("record is not found")
		}
		if got.Snapshot["spec"].(map[string]any)["replicas"] != int64(3) {
			t.Errorf("snapshot is shared with caller: %v", got.Snapshot)
		}
		if got.Actor != "alice" || got.Resource != web {
			t.Errorf("unexpected record: %+v", got)
		}

		got.Snapshot["spec"] = "mutated"
		again, _ := s.Get(rec.Key)
		if !conftree.Equal(again.Snapshot, conftree.Tree{"spec": map[string]any{"replicas": int64(3)}}) {
			t.Errorf("record is mutated through Get: %v", again.Snapshot)
		}
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		s, _ := newStore()
		if _, ok := s.Get("deployment:default:web:2000-01-01T00:00:00Z"); ok {
			t.Error("unexpected record")
		}
	})

	t.Run("it keeps at most MaxRecords per resource, dropping the oldest", func(t *testing.T) {
		s, c := newStore(rollback.WithMaxRecords(2))
		other := domain.Identity{Kind: domain.Service, Namespace: "default", Name: "web"}

		first := s.Put(web, conftree.Tree{"n": int64(1)}, "u")
		c.now = c.now.Add(time.Second)
		s.Put(other, conftree.Tree{"n": int64(0)}, "u")
		second := s.Put(web, conftree.Tree{"n": int64(2)}, "u")
		c.now = c.now.Add(time.Second)
		third := s.Put(web, conftree.Tree{"n": int64(3)}, "u")

		if _, ok := s.Get(first.Key); ok {
			t.Error("oldest record is not dropped")
		}
		records := s.List(web)
		if len(records) != 2 || records[0].Key != third.Key || records[1].Key != second.Key {
			t.Errorf("unexpected records: %+v", records)
		}
		if len(s.List(other)) != 1 {
			t.Error("other resource is affected")
		}
		if s.Len() != 3 {
			t.Errorf("unexpected length: %d", s.Len())
		}
	})

	t.Run("records older than MaxAge are pruned", func(t *testing.T) {
		s, c := newStore(rollback.WithMaxAge(time.Hour))
		old := s.Put(web, conftree.Tree{"n": int64(1)}, "u")

		c.now = c.now.Add(time.Hour + time.Second)
		if _, ok := s.Get(old.Key); ok {
			t.Error("expired record is returned")
		}
		if records := s.List(web); len(records) != 0 {
			t.Errorf("expired record is listed: %+v", records)
		}

		s.Put(web, conftree.Tree{"n": int64(2)}, "u")
		if s.Len() != 1 {
			t.Errorf("expired record is not pruned: %d", s.Len())
		}
	})
}
