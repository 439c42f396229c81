package filter

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestRuleFilter(t *testing.T) {
	ctx := context.Background()

	own := core.NewCandidate("own", core.SourceFollowees)
	own.AuthorID = "u1"
	lowq := core.NewCandidate("lowq", core.SourceTrending)
	lowq.Raw = core.RawSignals{Impressions: 200000}
	lowq.Engagement = 0.001
	normal := core.NewCandidate("normal", core.SourceTrending)
	normal.AuthorID = "author1"
	normal.Raw = core.RawSignals{Impressions: 1000}
	normal.Engagement = 0.1

	f, err := NewRuleFilter(
		`candidate.author_id == fctx.user_id`,
		`candidate.raw.impressions > 100000 && candidate.engagement < 0.01`,
	)
	if err != nil {
		t.Fatalf("NewRuleFilter: %v", err)
	}

	fctx := &core.FeedContext{UserID: "u1"}
	tests := []struct {
		name string
		c    *core.Candidate
		want bool
	}{
		{"own content filtered", own, true},
		{"low quality high exposure filtered", lowq, true},
		{"normal content kept", normal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(ctx, fctx, tt.c)
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRuleFilter_CompileError(t *testing.T) {
	if _, err := NewRuleFilter(`candidate.combined >`); err == nil {
		t.Error("expected compile error at construction time")
	}
}
