package filter

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/store"
)

func newCand(id string) *core.Candidate {
	return core.NewCandidate(id, core.SourceFollowees)
}

func TestServedStore_MarkAndFilter(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	served := NewServedStore(s)
	if err := served.MarkServed(ctx, "u1", []string{"a", "b"}); err != nil {
		t.Fatalf("MarkServed: %v", err)
	}

	t.Run("WasServed", func(t *testing.T) {
		for _, tt := range []struct {
			contentID string
			want      bool
		}{
			{"a", true},
			{"b", true},
			{"c", false},
		} {
			got, err := served.WasServed(ctx, "u1", tt.contentID)
			if err != nil {
				t.Fatalf("WasServed(%s): %v", tt.contentID, err)
			}
			if got != tt.want {
				t.Errorf("WasServed(%s) = %v, want %v", tt.contentID, got, tt.want)
			}
		}
	})

	t.Run("window is per user", func(t *testing.T) {
		got, err := served.WasServed(ctx, "u2", "a")
		if err != nil {
			t.Fatal(err)
		}
		if got {
			t.Error("u2 should not see u1's window")
		}
	})

	t.Run("batch filter drops served", func(t *testing.T) {
		f := &ServedFilter{History: served}
		out := f.Filter(ctx, &core.FeedContext{UserID: "u1"},
			[]*core.Candidate{newCand("a"), newCand("c"), newCand("b"), newCand("d")})
		if len(out) != 2 || out[0].ContentID != "c" || out[1].ContentID != "d" {
			t.Errorf("filtered = %v", out)
		}
	})
}

// 窗口外的旧条目不再算已曝光，且会在下次写入时被清理。
func TestServedStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	served := NewServedStore(s)
	served.Window = 48 * time.Hour
	served.Now = func() time.Time { return clock }

	if err := served.MarkServed(ctx, "u1", []string{"old"}); err != nil {
		t.Fatal(err)
	}

	// 3 天后：old 已滑出窗口
	clock = base.Add(72 * time.Hour)
	got, err := served.WasServed(ctx, "u1", "old")
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Error("entry outside window should not count as served")
	}

	set, err := served.ServedWithin(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := set["old"]; ok {
		t.Error("ServedWithin should exclude expired entries")
	}

	// 新写入触发清理：old 被物理删除
	if err := served.MarkServed(ctx, "u1", []string{"new"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ZScore(ctx, "feed:served:u1", "old"); !core.IsStoreNotFound(err) {
		t.Errorf("expired entry should be purged, err = %v", err)
	}
	if _, err := s.ZScore(ctx, "feed:served:u1", "new"); err != nil {
		t.Errorf("fresh entry should remain, err = %v", err)
	}
}

// 窗口读取失败时宁可重复曝光，不阻断出页。
type failingHistory struct{}

func (failingHistory) ServedWithin(context.Context, string) (map[string]struct{}, error) {
	return nil, core.ErrStoreNotSupported
}

func (failingHistory) WasServed(context.Context, string, string) (bool, error) {
	return false, core.ErrStoreNotSupported
}

func TestServedFilter_HistoryFailureKeepsCandidates(t *testing.T) {
	f := &ServedFilter{History: failingHistory{}}
	fctx := &core.FeedContext{UserID: "u1"}

	cands := []*core.Candidate{newCand("a"), newCand("b")}
	if out := f.Filter(context.Background(), fctx, cands); len(out) != 2 {
		t.Errorf("got %d candidates, want 2", len(out))
	}

	drop, err := f.ShouldFilter(context.Background(), fctx, newCand("a"))
	if err != nil || drop {
		t.Errorf("ShouldFilter = (%v, %v), want keep", drop, err)
	}
}

func TestNode_CombinesFilters(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	served := NewServedStore(s)
	if err := served.MarkServed(ctx, "u1", []string{"seen"}); err != nil {
		t.Fatal(err)
	}

	rules, err := NewRuleFilter(`candidate.raw.impressions < 10`)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	node := &Node{Filters: []Filter{&ServedFilter{History: served}, rules}}

	seen := newCand("seen")
	thin := newCand("thin")
	thin.Raw.Impressions = 3
	ok := newCand("ok")
	ok.Raw.Impressions = 500

	out, err := node.Process(ctx, &core.FeedContext{UserID: "u1"}, []*core.Candidate{seen, thin, ok})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 || out[0].ContentID != "ok" {
		t.Errorf("out = %v", out)
	}
	if lbl, found := seen.Labels["filtered"]; !found || lbl.Source != "filter.served" {
		t.Errorf("seen labels = %v", seen.Labels)
	}
}
