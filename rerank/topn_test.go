package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func cands(ids ...string) []*core.Candidate {
	out := make([]*core.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewCandidate(id, core.SourceTrending))
	}
	return out
}

func TestTopN(t *testing.T) {
	tests := []struct {
		name string
		n    int
		in   []*core.Candidate
		want int
	}{
		{"truncate", 2, cands("a", "b", "c"), 2},
		{"fewer than n", 5, cands("a", "b"), 2},
		{"zero means no cap", 0, cands("a", "b", "c"), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopN{N: tt.n}
			out, err := node.Process(context.Background(), nil, tt.in)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if len(out) != tt.want {
				t.Errorf("got %d candidates, want %d", len(out), tt.want)
			}
		})
	}
}

func TestDiversity(t *testing.T) {
	in := cands("a1", "a2", "a3", "b1", "n1")
	in[0].AuthorID = "alice"
	in[1].AuthorID = "alice"
	in[2].AuthorID = "alice"
	in[3].AuthorID = "bob"
	// n1 没有作者信息，不参与打散

	node := &Diversity{MaxPerAuthor: 2}
	out, err := node.Process(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []string{"a1", "a2", "b1", "n1"}
	if len(out) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(out), len(want))
	}
	for i, id := range want {
		if out[i].ContentID != id {
			t.Errorf("position %d = %s, want %s", i, out[i].ContentID, id)
		}
	}
}

func TestDiversity_NoLimit(t *testing.T) {
	in := cands("a1", "a2")
	in[0].AuthorID = "alice"
	in[1].AuthorID = "alice"

	node := &Diversity{}
	out, err := node.Process(context.Background(), nil, in)
	if err != nil || len(out) != 2 {
		t.Errorf("Process = (%d, %v), want all kept", len(out), err)
	}
}
